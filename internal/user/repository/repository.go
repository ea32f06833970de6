package repository

import (
	"context"
	"errors"

	"mentorhub/backend/internal/user/domain"
)

var (
	// ErrDuplicateUsername is returned by Create when the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUnknownRole is returned when a role name is not in the roles table.
	ErrUnknownRole = errors.New("unknown role")
	// ErrUserNotFound is returned by AssignRole for a missing user.
	ErrUserNotFound = errors.New("user not found")
)

// Repository defines persistence for users and their roles.
// Lookups return (nil, nil) when the user does not exist.
type Repository interface {
	// Create stores the user and its initial roles in one transaction.
	Create(ctx context.Context, u *domain.User, roles ...string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetRoles(ctx context.Context, userID string) ([]string, error)
	// AssignRole adds role to the user. Assigning a role the user already has is a no-op.
	AssignRole(ctx context.Context, userID, role string) error
}
