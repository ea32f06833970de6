package repository

import (
	"context"
	"slices"
	"sync"

	"mentorhub/backend/internal/audit/domain"
)

// MemoryRepository keeps audit logs in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *a)
	return nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for _, e := range slices.Backward(r.entries) {
		if e.UserID != userID {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, &e)
	}
	return out, nil
}
