package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"mentorhub/backend/internal/user/domain"
)

func newUser(username string) *domain.User {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		Name:         "Test",
		Surname:      "User",
		PasswordHash: "$2a$04$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// runRepositorySuite exercises the behaviour every user Repository must share.
// Storage may be shared across subtests, so usernames are unique per subtest.
func runRepositorySuite(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("create and look up", func(t *testing.T) {
		u := newUser("alice-" + uuid.NewString()[:8])
		require.NoError(t, repo.Create(ctx, u, domain.RoleUser))

		byID, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		require.Equal(t, u.Username, byID.Username)
		require.Equal(t, u.Email, byID.Email)
		require.Equal(t, u.PasswordHash, byID.PasswordHash)
		require.True(t, u.CreatedAt.Equal(byID.CreatedAt))

		byName, err := repo.GetByUsername(ctx, u.Username)
		require.NoError(t, err)
		require.NotNil(t, byName)
		require.Equal(t, u.ID, byName.ID)

		roles, err := repo.GetRoles(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleUser}, roles)
	})

	t.Run("username lookup ignores case", func(t *testing.T) {
		u := newUser("Bob-" + uuid.NewString()[:8])
		require.NoError(t, repo.Create(ctx, u))

		got, err := repo.GetByUsername(ctx, domain.NormalizeUsername(u.Username))
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("missing user is nil without error", func(t *testing.T) {
		u, err := repo.GetByID(ctx, uuid.NewString())
		require.NoError(t, err)
		require.Nil(t, u)

		u, err = repo.GetByUsername(ctx, "nobody-"+uuid.NewString())
		require.NoError(t, err)
		require.Nil(t, u)

		roles, err := repo.GetRoles(ctx, uuid.NewString())
		require.NoError(t, err)
		require.Empty(t, roles)
	})

	t.Run("duplicate username", func(t *testing.T) {
		name := "carol-" + uuid.NewString()[:8]
		require.NoError(t, repo.Create(ctx, newUser(name)))

		dup := newUser(name)
		dup.Username = domain.NormalizeUsername(name)
		require.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateUsername)

		got, err := repo.GetByID(ctx, dup.ID)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("unknown role rolls back create", func(t *testing.T) {
		u := newUser("dave-" + uuid.NewString()[:8])
		require.ErrorIs(t, repo.Create(ctx, u, domain.RoleUser, "Wizard"), ErrUnknownRole)

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("assign role", func(t *testing.T) {
		u := newUser("erin-" + uuid.NewString()[:8])
		require.NoError(t, repo.Create(ctx, u, domain.RoleUser))

		require.NoError(t, repo.AssignRole(ctx, u.ID, domain.RoleSysAdmin))
		require.NoError(t, repo.AssignRole(ctx, u.ID, domain.RoleSysAdmin))
		roles, err := repo.GetRoles(ctx, u.ID)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{domain.RoleUser, domain.RoleSysAdmin}, roles)

		require.ErrorIs(t, repo.AssignRole(ctx, u.ID, "Wizard"), ErrUnknownRole)
		require.ErrorIs(t, repo.AssignRole(ctx, uuid.NewString(), domain.RoleMentor), ErrUserNotFound)
	})
}
