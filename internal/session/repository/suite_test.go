package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"mentorhub/backend/internal/security"
	"mentorhub/backend/internal/session/domain"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// repoFactory builds a Repository for one subtest. Implementations may share storage across subtests,
// so every subtest uses fresh session and user ids.
type repoFactory func(t *testing.T, clock *testClock) Repository

const sessionTTL = 72 * time.Hour

// runRepositorySuite exercises the behaviour every Repository implementation must share.
func runRepositorySuite(t *testing.T, newRepo repoFactory) {
	t.Run("create and validate", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		id := uuid.NewString()
		require.NoError(t, repo.Create(ctx, id, userA, "r1", clock.Now().Add(sessionTTL)))

		ok, err := repo.Validate(ctx, id, "r1")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.Validate(ctx, id, "r2")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = repo.Validate(ctx, uuid.NewString(), "r1")
		require.NoError(t, err)
		require.False(t, ok)

		s, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, s)
		require.Equal(t, userA, s.UserID)
		require.NotEqual(t, "r1", s.RefreshTokenHash)
		require.Equal(t, domain.StateActive, s.State(clock.Now()))
	})

	t.Run("duplicate id", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		id := uuid.NewString()
		require.NoError(t, repo.Create(ctx, id, userA, "r1", clock.Now().Add(sessionTTL)))
		require.ErrorIs(t, repo.Create(ctx, id, userA, "other", clock.Now().Add(sessionTTL)), ErrSessionExists)

		ok, err := repo.Validate(ctx, id, "r1")
		require.NoError(t, err)
		require.True(t, ok, "failed create must not touch the existing session")
	})

	t.Run("rotation supersedes every earlier token", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		id := uuid.NewString()
		require.NoError(t, repo.Create(ctx, id, userA, "r0", clock.Now().Add(sessionTTL)))

		const n = 5
		for i := 1; i <= n; i++ {
			clock.Advance(time.Hour)
			ok, err := repo.Rotate(ctx, id, fmt.Sprintf("r%d", i-1), fmt.Sprintf("r%d", i), clock.Now().Add(sessionTTL))
			require.NoError(t, err)
			require.True(t, ok, "rotation %d", i)
		}
		for i := 0; i < n; i++ {
			ok, err := repo.Validate(ctx, id, fmt.Sprintf("r%d", i))
			require.NoError(t, err)
			require.False(t, ok, "token r%d still valid", i)

			ok, err = repo.Rotate(ctx, id, fmt.Sprintf("r%d", i), "replay", clock.Now().Add(sessionTTL))
			require.NoError(t, err)
			require.False(t, ok, "replayed r%d rotated", i)
		}
		ok, err := repo.Validate(ctx, id, fmt.Sprintf("r%d", n))
		require.NoError(t, err)
		require.True(t, ok)

		s, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.WithinDuration(t, clock.Now().Add(sessionTTL), s.ExpiresAt, time.Second, "expiry slides from the last refresh")
		require.NotNil(t, s.LastRotatedAt)
	})

	t.Run("expiry never moves backwards", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		id := uuid.NewString()
		exp := clock.Now().Add(sessionTTL)
		require.NoError(t, repo.Create(ctx, id, userA, "r0", exp))

		ok, err := repo.Rotate(ctx, id, "r0", "r1", clock.Now().Add(time.Hour))
		require.NoError(t, err)
		require.True(t, ok)

		s, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.WithinDuration(t, exp, s.ExpiresAt, time.Second)
	})

	t.Run("revoke is terminal and idempotent", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		id := uuid.NewString()
		require.NoError(t, repo.Create(ctx, id, userA, "r1", clock.Now().Add(sessionTTL)))

		revoked, err := repo.Revoke(ctx, id)
		require.NoError(t, err)
		require.True(t, revoked)
		revoked, err = repo.Revoke(ctx, id)
		require.NoError(t, err)
		require.False(t, revoked, "second revoke is a no-op")
		revoked, err = repo.Revoke(ctx, uuid.NewString())
		require.NoError(t, err)
		require.False(t, revoked, "unknown session is a no-op")

		ok, err := repo.Validate(ctx, id, "r1")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = repo.Rotate(ctx, id, "r1", "r2", clock.Now().Add(sessionTTL))
		require.NoError(t, err)
		require.False(t, ok)

		s, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.StateRevoked, s.State(clock.Now()))
		requireStoredToken(t, repo, id, "r1")
	})

	t.Run("expired session cannot rotate", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		id := uuid.NewString()
		require.NoError(t, repo.Create(ctx, id, userA, "r1", clock.Now().Add(sessionTTL)))

		clock.Advance(sessionTTL + time.Second)
		ok, err := repo.Validate(ctx, id, "r1")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = repo.Rotate(ctx, id, "r1", "r2", clock.Now().Add(sessionTTL))
		require.NoError(t, err)
		require.False(t, ok)

		s, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.StateExpired, s.State(clock.Now()))
	})

	t.Run("concurrent rotation has one winner", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		id := uuid.NewString()
		require.NoError(t, repo.Create(ctx, id, userA, "shared", clock.Now().Add(sessionTTL)))

		const racers = 16
		start := make(chan struct{})
		results := make([]bool, racers)
		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i], errs[i] = repo.Rotate(ctx, id, "shared", fmt.Sprintf("next-%d", i), clock.Now().Add(sessionTTL))
			}(i)
		}
		close(start)
		wg.Wait()

		winners := 0
		winner := -1
		for i := range results {
			require.NoError(t, errs[i])
			if results[i] {
				winners++
				winner = i
			}
		}
		require.Equal(t, 1, winners)
		for i := 0; i < racers; i++ {
			ok, err := repo.Validate(ctx, id, fmt.Sprintf("next-%d", i))
			require.NoError(t, err)
			require.Equal(t, i == winner, ok, "racer %d", i)
		}
	})

	t.Run("revoke racing rotation ends revoked", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		for round := 0; round < 10; round++ {
			id := uuid.NewString()
			require.NoError(t, repo.Create(ctx, id, userA, "r0", clock.Now().Add(sessionTTL)))

			start := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				<-start
				_, _ = repo.Rotate(ctx, id, "r0", "r1", clock.Now().Add(sessionTTL))
			}()
			go func() {
				defer wg.Done()
				<-start
				_, _ = repo.Revoke(ctx, id)
			}()
			close(start)
			wg.Wait()

			s, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			require.Equal(t, domain.StateRevoked, s.State(clock.Now()))
			for _, tok := range []string{"r0", "r1"} {
				ok, err := repo.Rotate(ctx, id, tok, "r2", clock.Now().Add(sessionTTL))
				require.NoError(t, err)
				require.False(t, ok)
			}
		}
	})

	t.Run("list and revoke by user", func(t *testing.T) {
		ctx := context.Background()
		clock := newTestClock()
		repo := newRepo(t, clock)
		userA := uuid.NewString()
		userB := uuid.NewString()
		a1, a2, b1 := uuid.NewString(), uuid.NewString(), uuid.NewString()
		require.NoError(t, repo.Create(ctx, a1, userA, "a1", clock.Now().Add(sessionTTL)))
		clock.Advance(time.Minute)
		require.NoError(t, repo.Create(ctx, a2, userA, "a2", clock.Now().Add(sessionTTL)))
		require.NoError(t, repo.Create(ctx, b1, userB, "b1", clock.Now().Add(sessionTTL)))

		list, err := repo.ListActiveByUser(ctx, userA)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, a2, list[0].ID, "newest first")

		_, err = repo.Revoke(ctx, a1)
		require.NoError(t, err)
		n, err := repo.RevokeAllByUser(ctx, userA)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		list, err = repo.ListActiveByUser(ctx, userA)
		require.NoError(t, err)
		require.Empty(t, list)

		ok, err := repo.Validate(ctx, b1, "b1")
		require.NoError(t, err)
		require.True(t, ok, "other users are untouched")
	})
}

// requireStoredToken asserts the stored hash still belongs to token.
func requireStoredToken(t *testing.T, repo Repository, id, token string) {
	t.Helper()
	s, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, security.HashRefreshToken(token), s.RefreshTokenHash)
}
