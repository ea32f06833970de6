package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mentorhub/backend/internal/audit"
	"mentorhub/backend/internal/metrics"
	"mentorhub/backend/internal/security"
	sessionrepo "mentorhub/backend/internal/session/repository"
	userdomain "mentorhub/backend/internal/user/domain"
	userrepo "mentorhub/backend/internal/user/repository"
)

const alicePassword = "Wonder1and!"

type testClock struct {
	mu sync.Mutex
	t  time.Time
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

type auditEvent struct {
	userID, action, resource, metadata string
}

type recordingAudit struct {
	mu     sync.Mutex
	events []auditEvent
}

func (a *recordingAudit) LogEvent(_ context.Context, userID, action, resource, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, auditEvent{userID, action, resource, metadata})
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.events))
	for i, e := range a.events {
		out[i] = e.action
	}
	return out
}

// flakySessions fails selected operations with errStore.
type flakySessions struct {
	sessionrepo.Repository
	failCreate, failRotate, failRevoke bool
}

var errStore = errors.New("connection refused")

func (f *flakySessions) Create(ctx context.Context, sessionID, userID, token string, expiresAt time.Time) error {
	if f.failCreate {
		return errStore
	}
	return f.Repository.Create(ctx, sessionID, userID, token, expiresAt)
}

func (f *flakySessions) Rotate(ctx context.Context, sessionID, expected, next string, expiresAt time.Time) (bool, error) {
	if f.failRotate {
		return false, errStore
	}
	return f.Repository.Rotate(ctx, sessionID, expected, next, expiresAt)
}

func (f *flakySessions) Revoke(ctx context.Context, sessionID string) (bool, error) {
	if f.failRevoke {
		return false, errStore
	}
	return f.Repository.Revoke(ctx, sessionID)
}

// hidingUsers simulates a user deleted from the identity store after login.
type hidingUsers struct {
	*userrepo.MemoryRepository
	mu     sync.Mutex
	hidden map[string]bool
}

func (h *hidingUsers) hide(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hidden[id] = true
}

func (h *hidingUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	h.mu.Lock()
	hidden := h.hidden[id]
	h.mu.Unlock()
	if hidden {
		return nil, nil
	}
	return h.MemoryRepository.GetByID(ctx, id)
}

type testEnv struct {
	svc      *AuthService
	users    *hidingUsers
	store    *sessionrepo.MemoryRepository
	sessions *flakySessions
	tokens   *security.TokenProvider
	audit    *recordingAudit
	clock    *testClock
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	env := &testEnv{
		users:  &hidingUsers{MemoryRepository: userrepo.NewMemoryRepository(), hidden: map[string]bool{}},
		store:  sessionrepo.NewMemoryRepository(sessionrepo.WithClock(clock.Now)),
		tokens: security.NewTestTokenProvider(security.WithClock(clock.Now)),
		audit:  &recordingAudit{},
		clock:  clock,
	}
	env.sessions = &flakySessions{Repository: env.store}
	opts = append([]Option{WithClock(clock.Now), WithAuditLogger(env.audit)}, opts...)
	env.svc = NewAuthService(env.users, env.sessions, security.NewHasher(4), env.tokens, Config{}, opts...)
	return env
}

func (e *testEnv) registerAlice(t *testing.T) *Profile {
	t.Helper()
	p, err := e.svc.Register(context.Background(), RegisterInput{
		Name: "Alice", Surname: "Liddell", Username: "alice", Email: "alice@example.com", Password: alicePassword,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) activeSessions(t *testing.T, userID string) int {
	t.Helper()
	list, err := e.store.ListActiveByUser(context.Background(), userID)
	require.NoError(t, err)
	return len(list)
}

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t)
	p := env.registerAlice(t)

	require.NotEmpty(t, p.ID)
	require.Equal(t, "alice", p.Username)
	require.Equal(t, []string{userdomain.RoleUser}, p.Roles)

	stored, err := env.users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotEqual(t, alicePassword, stored.PasswordHash)
	require.Equal(t, []string{audit.ActionRegister}, env.audit.actions())
}

func TestAuthService_RegisterDefaultRole(t *testing.T) {
	users := userrepo.NewMemoryRepository()
	svc := NewAuthService(users, sessionrepo.NewMemoryRepository(), security.NewHasher(4),
		security.NewTestTokenProvider(), Config{DefaultRole: userdomain.RoleMentor})

	p, err := svc.Register(context.Background(), RegisterInput{
		Name: "M", Surname: "N", Username: "mentor", Email: "m@example.com", Password: alicePassword,
	})
	require.NoError(t, err)
	require.Equal(t, []string{userdomain.RoleMentor}, p.Roles)

	roles, err := users.GetRoles(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, []string{userdomain.RoleMentor}, roles)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	valid := RegisterInput{Name: "A", Surname: "B", Username: "bob", Email: "bob@example.com", Password: alicePassword}
	tests := []struct {
		name string
		mod  func(*RegisterInput)
		want error
	}{
		{"missing name", func(in *RegisterInput) { in.Name = " " }, ErrInvalidInput},
		{"missing surname", func(in *RegisterInput) { in.Surname = "" }, ErrInvalidInput},
		{"missing username", func(in *RegisterInput) { in.Username = "" }, ErrInvalidInput},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, ErrInvalidInput},
		{"missing password", func(in *RegisterInput) { in.Password = "" }, ErrInvalidInput},
		{"bad username chars", func(in *RegisterInput) { in.Username = "bob smith" }, ErrUnprocessable},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, ErrUnprocessable},
		{"short password", func(in *RegisterInput) { in.Password = "Ab1!" }, ErrUnprocessable},
		{"no symbol", func(in *RegisterInput) { in.Password = "Abcdef12" }, ErrUnprocessable},
		{"no upper", func(in *RegisterInput) { in.Password = "abcdef1!" }, ErrUnprocessable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			in := valid
			tt.mod(&in)
			_, err := env.svc.Register(context.Background(), in)
			require.ErrorIs(t, err, tt.want)

			u, err := env.users.GetByUsername(context.Background(), in.Username)
			require.NoError(t, err)
			require.Nil(t, u)
		})
	}
}

func TestAuthService_RegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.registerAlice(t)

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Name: "Other", Surname: "Alice", Username: "ALICE", Email: "a2@example.com", Password: alicePassword,
	})
	require.ErrorIs(t, err, ErrUsernameTaken)
	require.ErrorIs(t, err, ErrUnprocessable)
}

func TestAuthService_LoginIssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerAlice(t)

	pair, err := env.svc.Login(context.Background(), "alice", alicePassword)
	require.NoError(t, err)
	require.Equal(t, alice.ID, pair.UserID)
	require.Equal(t, env.clock.Now().Add(DefaultSessionTTL), pair.RefreshExpiresAt)

	access, err := env.tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, alice.ID, access.Subject)
	require.Equal(t, "alice", access.Username)
	require.Equal(t, []string{userdomain.RoleUser}, access.Roles)

	refresh, err := env.tokens.ParseRefreshStrict(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, pair.SessionID, refresh.SessionID)

	sess, err := env.store.GetByID(context.Background(), pair.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, alice.ID, sess.UserID)
	require.Contains(t, env.audit.actions(), audit.ActionLoginSuccess)
}

func TestAuthService_LoginWrongPasswordCreatesNoSession(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerAlice(t)

	_, wrongPassword := env.svc.Login(context.Background(), "alice", "Wrong-passw0rd")
	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, wrongPassword, ErrAuthenticationFailed)

	_, unknownUser := env.svc.Login(context.Background(), "mallory", "Wrong-passw0rd")
	require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())

	require.Zero(t, env.activeSessions(t, alice.ID))
	require.Contains(t, env.audit.actions(), audit.ActionLoginFailure)
}

func TestAuthService_LoginMissingFields(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Login(context.Background(), " ", alicePassword)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.svc.Login(context.Background(), "alice", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthService_LoginUsernameIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.registerAlice(t)

	pair, err := env.svc.Login(context.Background(), "Alice", alicePassword)
	require.NoError(t, err)
	access, err := env.tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", access.Username)
}

func TestAuthService_LoginRefreshLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registerAlice(t)

	first, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)

	second, err := env.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, first.SessionID, second.SessionID)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEqual(t, first.AccessToken, second.AccessToken)

	_, err = env.svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	require.NoError(t, env.svc.Logout(ctx, second.RefreshToken))
	sess, err := env.store.GetByID(ctx, second.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.RevokedAt)

	_, err = env.svc.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	require.Equal(t, []string{
		audit.ActionRegister,
		audit.ActionLoginSuccess,
		audit.ActionRefreshSuccess,
		audit.ActionRefreshFailure,
		audit.ActionLogout,
		audit.ActionRefreshFailure,
	}, env.audit.actions())
}

func TestAuthService_OnlyLatestRefreshTokenValidates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registerAlice(t)

	pair, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
	issued := []string{pair.RefreshToken}
	for range 5 {
		pair, err = env.svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		issued = append(issued, pair.RefreshToken)
	}

	for _, old := range issued[:len(issued)-1] {
		_, err := env.svc.Refresh(ctx, old)
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
	}
	ok, err := env.store.Validate(ctx, pair.SessionID, issued[len(issued)-1])
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAuthService_RefreshSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registerAlice(t)

	pair, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)

	env.clock.Advance(48 * time.Hour)
	pair, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, env.clock.Now().Add(DefaultSessionTTL), pair.RefreshExpiresAt)

	sess, err := env.store.GetByID(ctx, pair.SessionID)
	require.NoError(t, err)
	require.True(t, sess.ExpiresAt.Equal(pair.RefreshExpiresAt))

	// Still valid past the original login expiry.
	env.clock.Advance(48 * time.Hour)
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_ExpiredSessionCannotRefreshButCanLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registerAlice(t)

	pair, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)

	env.clock.Advance(DefaultSessionTTL + time.Minute)
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, env.svc.Logout(ctx, pair.RefreshToken))
	sess, err := env.store.GetByID(ctx, pair.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.RevokedAt)
}

func TestAuthService_ConcurrentRefreshSingleWinner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registerAlice(t)

	pair, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)

	const racers = 16
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		mu      sync.Mutex
		winners []*TokenPair
		losers  int
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := env.svc.Refresh(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, got)
				return
			}
			if errors.Is(err, ErrAuthenticationFailed) {
				losers++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	require.Equal(t, racers-1, losers)

	ok, err := env.store.Validate(ctx, pair.SessionID, winners[0].RefreshToken)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAuthService_LoginsAreIndependentSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.registerAlice(t)

	a, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
	b, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
	require.NotEqual(t, a.SessionID, b.SessionID)
	require.Equal(t, 2, env.activeSessions(t, alice.ID))

	require.NoError(t, env.svc.Logout(ctx, a.RefreshToken))
	_, err = env.svc.Refresh(ctx, a.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = env.svc.Refresh(ctx, b.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_LogoutWithoutUsableToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.registerAlice(t)
	pair, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, ""))
	require.NoError(t, env.svc.Logout(ctx, "not-a-jwt"))

	forger, err := security.NewHMACTokenProvider([]byte("another-secret"), "test-issuer", "test-audience")
	require.NoError(t, err)
	forged, err := forger.IssueRefreshToken(pair.SessionID, pair.UserID, env.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, env.svc.Logout(ctx, forged))

	ok, err := env.store.Validate(ctx, pair.SessionID, pair.RefreshToken)
	require.NoError(t, err)
	require.True(t, ok, "a forged token must not revoke the session")
}

// revocationCounter sums RecordSessionsRevoked calls.
type revocationCounter struct {
	metrics.Nop
	mu      sync.Mutex
	revoked int
}

func (c *revocationCounter) RecordSessionsRevoked(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked += n
}

func (c *revocationCounter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revoked
}

func TestAuthService_RegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Register(context.Background(), RegisterInput{
		Name: "Alice", Surname: "Liddell", Username: "alice", Email: "alice@example.com",
		Password: "Ab1!" + strings.Repeat("x", 69),
	})
	require.ErrorIs(t, err, ErrUnprocessable)
	require.ErrorContains(t, err, "at most 72 bytes")
}

func TestAuthService_RevocationMetricCountsTransitionsOnly(t *testing.T) {
	ctx := context.Background()
	counter := &revocationCounter{}
	env := newTestEnv(t, WithMetrics(counter))
	alice := env.registerAlice(t)

	pair, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
	require.NoError(t, env.svc.Logout(ctx, pair.RefreshToken))
	require.Equal(t, 1, counter.total())

	// Repeated logout and revoking an already revoked session change nothing.
	require.NoError(t, env.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, env.svc.RevokeSession(ctx, alice.ID, pair.SessionID))
	require.Equal(t, 1, counter.total())

	// A validly signed token naming a session that never existed.
	ghost, err := env.tokens.IssueRefreshToken("no-such-session", alice.ID, env.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, env.svc.Logout(ctx, ghost))
	require.Equal(t, 1, counter.total())

	other, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
	require.NoError(t, env.svc.RevokeSession(ctx, alice.ID, other.SessionID))
	require.Equal(t, 2, counter.total())
}

func TestAuthService_RefreshForDeletedUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.registerAlice(t)
	pair, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)

	env.users.hide(alice.ID)
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUserNotFound)

	ok, err := env.store.Validate(ctx, pair.SessionID, pair.RefreshToken)
	require.NoError(t, err)
	require.True(t, ok, "rejected refresh must not rotate")
}

func TestAuthService_RefreshPicksUpNewRoles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.registerAlice(t)
	pair, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)

	require.NoError(t, env.svc.AssignRole(ctx, alice.ID, userdomain.RoleCoordinator))
	pair, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	access, err := env.tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{userdomain.RoleUser, userdomain.RoleCoordinator}, access.Roles)
}

func TestAuthService_StorageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("create session", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerAlice(t)
		env.sessions.failCreate = true
		_, err := env.svc.Login(ctx, "alice", alicePassword)
		require.ErrorIs(t, err, ErrServiceFailure)
		require.NotErrorIs(t, err, ErrAuthenticationFailed)
	})

	t.Run("rotate", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerAlice(t)
		pair, err := env.svc.Login(ctx, "alice", alicePassword)
		require.NoError(t, err)

		env.sessions.failRotate = true
		_, err = env.svc.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrServiceFailure)
		require.ErrorIs(t, err, errStore)

		env.sessions.failRotate = false
		_, err = env.svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err, "a failed rotation leaves the old token current")
	})

	t.Run("revoke", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerAlice(t)
		pair, err := env.svc.Login(ctx, "alice", alicePassword)
		require.NoError(t, err)

		env.sessions.failRevoke = true
		require.ErrorIs(t, env.svc.Logout(ctx, pair.RefreshToken), ErrServiceFailure)
	})
}

func TestAuthService_SessionIDCollision(t *testing.T) {
	env := newTestEnv(t, WithSessionIDGenerator(func() string { return "fixed-session-id" }))
	env.registerAlice(t)

	_, err := env.svc.Login(context.Background(), "alice", alicePassword)
	require.NoError(t, err)
	_, err = env.svc.Login(context.Background(), "alice", alicePassword)
	require.ErrorIs(t, err, ErrServiceFailure)
	require.ErrorIs(t, err, sessionrepo.ErrSessionExists)
}

func TestAuthService_SessionManagement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.registerAlice(t)
	bob, err := env.svc.Register(ctx, RegisterInput{
		Name: "Bob", Surname: "B", Username: "bob", Email: "bob@example.com", Password: alicePassword,
	})
	require.NoError(t, err)

	a1, err := env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
	_, err = env.svc.Login(ctx, "alice", alicePassword)
	require.NoError(t, err)
	b1, err := env.svc.Login(ctx, "bob", alicePassword)
	require.NoError(t, err)

	list, err := env.svc.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.ErrorIs(t, env.svc.RevokeSession(ctx, alice.ID, b1.SessionID), ErrSessionNotFound)
	require.ErrorIs(t, env.svc.RevokeSession(ctx, alice.ID, "missing"), ErrSessionNotFound)
	require.NoError(t, env.svc.RevokeSession(ctx, alice.ID, a1.SessionID))

	list, err = env.svc.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	n, err := env.svc.RevokeAllSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Zero(t, env.activeSessions(t, alice.ID))
	require.Equal(t, 1, env.activeSessions(t, bob.ID))

	_, err = env.svc.RevokeAllSessions(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_MeAndAssignRole(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.registerAlice(t)

	me, err := env.svc.Me(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", me.Email)
	require.Equal(t, []string{userdomain.RoleUser}, me.Roles)

	require.ErrorIs(t, env.svc.AssignRole(ctx, alice.ID, "Wizard"), ErrUnknownRole)
	require.ErrorIs(t, env.svc.AssignRole(ctx, "missing", userdomain.RoleMentor), ErrUserNotFound)
	require.NoError(t, env.svc.AssignRole(ctx, alice.ID, userdomain.RoleSysAdmin))

	me, err = env.svc.Me(ctx, alice.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{userdomain.RoleUser, userdomain.RoleSysAdmin}, me.Roles)

	_, err = env.svc.Me(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
