package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"mentorhub/backend/internal/user/domain"
)

// MemoryRepository is an in-process Repository. Known roles default to domain.Roles.
type MemoryRepository struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byUsername map[string]string
	roles      map[string][]string
	known      []string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[string]domain.User),
		byUsername: make(map[string]string),
		roles:      make(map[string][]string),
		known:      slices.Clone(domain.Roles),
	}
}

func (r *MemoryRepository) Create(_ context.Context, u *domain.User, roles ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	norm := domain.NormalizeUsername(u.Username)
	if _, ok := r.byUsername[norm]; ok {
		return ErrDuplicateUsername
	}
	for _, role := range roles {
		if !slices.Contains(r.known, role) {
			return fmt.Errorf("%w: %s", ErrUnknownRole, role)
		}
	}
	r.users[u.ID] = *u
	r.byUsername[norm] = u.ID
	for _, role := range roles {
		r.addRole(u.ID, role)
	}
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[domain.NormalizeUsername(username)]
	if !ok {
		return nil, nil
	}
	u := r.users[id]
	return &u, nil
}

func (r *MemoryRepository) GetRoles(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.roles[userID]), nil
}

func (r *MemoryRepository) AssignRole(_ context.Context, userID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.known, role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if _, ok := r.users[userID]; !ok {
		return ErrUserNotFound
	}
	r.addRole(userID, role)
	return nil
}

func (r *MemoryRepository) addRole(userID, role string) {
	if slices.Contains(r.roles[userID], role) {
		return
	}
	r.roles[userID] = append(r.roles[userID], role)
	slices.Sort(r.roles[userID])
}
