package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"mentorhub/backend/internal/security"
	"mentorhub/backend/internal/session/domain"
)

// MemoryRepository is an in-process Repository. A single mutex serializes every mutation,
// which makes Rotate and Revoke trivially atomic with respect to each other.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository(opts ...Option) *MemoryRepository {
	o := applyOptions(opts)
	return &MemoryRepository{
		sessions: make(map[string]*domain.Session),
		now:      o.now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, sessionID, userID, refreshToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; ok {
		return ErrSessionExists
	}
	r.sessions[sessionID] = &domain.Session{
		ID:               sessionID,
		UserID:           userID,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		IssuedAt:         r.now().UTC(),
		ExpiresAt:        expiresAt.UTC(),
	}
	return nil
}

func (r *MemoryRepository) Validate(ctx context.Context, sessionID, refreshToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return false, nil
	}
	return s.Active(r.now()) && security.RefreshTokenMatches(s.RefreshTokenHash, refreshToken), nil
}

func (r *MemoryRepository) Rotate(ctx context.Context, sessionID, expectedToken, newToken string, newExpiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	now := r.now().UTC()
	if !ok || !s.Active(now) || !security.RefreshTokenMatches(s.RefreshTokenHash, expectedToken) {
		return false, nil
	}
	s.RefreshTokenHash = security.HashRefreshToken(newToken)
	if newExpiresAt.After(s.ExpiresAt) {
		s.ExpiresAt = newExpiresAt.UTC()
	}
	s.LastRotatedAt = &now
	return true, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	t := r.now().UTC()
	s.RevokedAt = &t
	return true, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.Active(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (r *MemoryRepository) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.now().UTC()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &t
			n++
		}
	}
	return n, nil
}
