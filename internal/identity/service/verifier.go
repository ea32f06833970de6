package service

import (
	"context"

	"mentorhub/backend/internal/security"
	userdomain "mentorhub/backend/internal/user/domain"
)

// UserStore is the identity store the auth service consumes.
type UserStore interface {
	Create(ctx context.Context, u *userdomain.User, roles ...string) error
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	GetRoles(ctx context.Context, userID string) ([]string, error)
	AssignRole(ctx context.Context, userID, role string) error
}

// CredentialVerifier checks a username/password pair against the stored bcrypt hash.
type CredentialVerifier struct {
	users  UserStore
	hasher *security.Hasher
}

func NewCredentialVerifier(users UserStore, hasher *security.Hasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify returns the user when password matches. An unknown username and a wrong password both
// cost one bcrypt comparison and both return ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*userdomain.User, error) {
	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, serviceFailure("find user", err)
	}
	if user == nil {
		_ = v.hasher.CompareMissing(password)
		return nil, ErrInvalidCredentials
	}
	if err := v.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RoleResolver supplies the role names embedded in access tokens.
type RoleResolver struct {
	users UserStore
}

func NewRoleResolver(users UserStore) *RoleResolver {
	return &RoleResolver{users: users}
}

// Roles returns the user's roles, never nil.
func (r *RoleResolver) Roles(ctx context.Context, userID string) ([]string, error) {
	roles, err := r.users.GetRoles(ctx, userID)
	if err != nil {
		return nil, serviceFailure("get roles", err)
	}
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}
