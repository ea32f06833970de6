package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mentorhub/backend/internal/audit"
	"mentorhub/backend/internal/metrics"
	"mentorhub/backend/internal/security"
	sessiondomain "mentorhub/backend/internal/session/domain"
	sessionrepo "mentorhub/backend/internal/session/repository"
	userdomain "mentorhub/backend/internal/user/domain"
	userrepo "mentorhub/backend/internal/user/repository"
)

// DefaultSessionTTL is how far each login or refresh pushes the session expiry.
const DefaultSessionTTL = 72 * time.Hour

// TokenPair is the outcome of Login and Refresh. The refresh token is delivered to the client as a cookie
// that expires with the session.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
	UserID           string
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name     string
	Surname  string
	Username string
	Email    string
	Password string
}

// Profile is the caller-visible view of a user.
type Profile struct {
	ID       string
	Username string
	Email    string
	Name     string
	Surname  string
	Roles    []string
}

// Config holds the tunables of AuthService.
type Config struct {
	// SessionTTL defaults to DefaultSessionTTL.
	SessionTTL time.Duration
	// DefaultRole is assigned at registration; defaults to userdomain.RoleUser.
	DefaultRole string
}

// Option configures optional collaborators of AuthService.
type Option func(*AuthService)

func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *AuthService) {
		if l != nil {
			s.audit = l
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *AuthService) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *AuthService) { s.log = l }
}

// WithClock overrides the time source for session expiry. The TokenProvider has its own clock.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionIDGenerator overrides uuid.NewString for session ids.
func WithSessionIDGenerator(gen func() string) Option {
	return func(s *AuthService) {
		if gen != nil {
			s.newSessionID = gen
		}
	}
}

// AuthService implements register, login, refresh and logout on top of the session registry.
type AuthService struct {
	users        UserStore
	sessions     sessionrepo.Repository
	hasher       *security.Hasher
	tokens       *security.TokenProvider
	verifier     *CredentialVerifier
	roles        *RoleResolver
	audit        audit.AuditLogger
	metrics      metrics.Recorder
	log          zerolog.Logger
	now          func() time.Time
	newSessionID func() string
	sessionTTL   time.Duration
	defaultRole  string
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	users UserStore,
	sessions sessionrepo.Repository,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	cfg Config,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:        users,
		sessions:     sessions,
		hasher:       hasher,
		tokens:       tokens,
		verifier:     NewCredentialVerifier(users, hasher),
		roles:        NewRoleResolver(users),
		audit:        audit.Nop{},
		metrics:      metrics.Nop{},
		log:          zerolog.Nop(),
		now:          time.Now,
		newSessionID: uuid.NewString,
		sessionTTL:   cfg.SessionTTL,
		defaultRole:  cfg.DefaultRole,
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	if s.defaultRole == "" {
		s.defaultRole = userdomain.RoleUser
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user with the default role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Surname == "" || in.Username == "" || in.Email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, invalidInput("name, surname, username, email and password are required")
	}
	if err := validateUsername(in.Username); err != nil {
		return nil, unprocessable(err.Error())
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, unprocessable(err.Error())
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, unprocessable(err.Error())
	}

	existing, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, serviceFailure("find user", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, unprocessable("password cannot be hashed")
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		Surname:      in.Surname,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, invalidInput(err.Error())
	}
	if err := s.users.Create(ctx, user, s.defaultRole); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, serviceFailure("create user", err)
	}

	s.audit.LogEvent(ctx, user.ID, audit.ActionRegister, audit.ResourceUser, "")
	return profileOf(user, []string{s.defaultRole}), nil
}

// Login verifies the credentials and opens a new session. A failed verification never creates a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.RecordLogin(metrics.OutcomeInvalid)
		return nil, invalidInput("username and password are required")
	}

	user, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.RecordLogin(metrics.OutcomeRejected)
			s.audit.LogEvent(ctx, "", audit.ActionLoginFailure, audit.ResourceUser, "username="+username)
		} else {
			s.metrics.RecordLogin(metrics.OutcomeError)
		}
		return nil, err
	}
	roles, err := s.roles.Roles(ctx, user.ID)
	if err != nil {
		s.metrics.RecordLogin(metrics.OutcomeError)
		return nil, err
	}

	sessionID := s.newSessionID()
	expiresAt := s.now().UTC().Add(s.sessionTTL)
	pair, err := s.issuePair(user, roles, sessionID, expiresAt)
	if err != nil {
		s.metrics.RecordLogin(metrics.OutcomeError)
		return nil, err
	}
	if err := s.sessions.Create(ctx, sessionID, user.ID, pair.RefreshToken, expiresAt); err != nil {
		s.metrics.RecordLogin(metrics.OutcomeError)
		if errors.Is(err, sessionrepo.ErrSessionExists) {
			s.logger(ctx).Error().Str("session_id", sessionID).Msg("session id collision")
		}
		return nil, serviceFailure("create session", err)
	}

	s.metrics.RecordLogin(metrics.OutcomeSuccess)
	s.audit.LogEvent(ctx, user.ID, audit.ActionLoginSuccess, audit.ResourceSession, sessionID)
	return pair, nil
}

// Refresh rotates the presented refresh token. Exactly one of several concurrent refreshes with the same
// token succeeds; the others, and any replay of a superseded token, get ErrInvalidRefreshToken.
// Each success pushes the session expiry SessionTTL past now.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken)
	switch {
	case err == nil:
		s.metrics.RecordRefresh(metrics.OutcomeSuccess)
		s.audit.LogEvent(ctx, pair.UserID, audit.ActionRefreshSuccess, audit.ResourceSession, pair.SessionID)
	case errors.Is(err, ErrServiceFailure):
		s.metrics.RecordRefresh(metrics.OutcomeError)
	default:
		s.metrics.RecordRefresh(metrics.OutcomeRejected)
		s.audit.LogEvent(ctx, "", audit.ActionRefreshFailure, audit.ResourceSession, "")
	}
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.ParseRefreshStrict(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	sessionID, userID := claims.SessionID, claims.Subject

	// Cheap rejection of replays before touching the identity store. Rotate re-checks atomically.
	ok, err := s.sessions.Validate(ctx, sessionID, refreshToken)
	if err != nil {
		return nil, serviceFailure("validate session", err)
	}
	if !ok {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, serviceFailure("find user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	roles, err := s.roles.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().UTC().Add(s.sessionTTL)
	pair, err := s.issuePair(user, roles, sessionID, expiresAt)
	if err != nil {
		return nil, err
	}
	rotated, err := s.sessions.Rotate(ctx, sessionID, refreshToken, pair.RefreshToken, expiresAt)
	if err != nil {
		return nil, serviceFailure("rotate session", err)
	}
	if !rotated {
		return nil, ErrInvalidRefreshToken
	}
	return pair, nil
}

// Logout revokes the session named by the refresh token, even when the token has expired.
// A missing or forged token is treated as already logged out and returns nil.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		s.metrics.RecordLogout(metrics.OutcomeRejected)
		return nil
	}
	claims, err := s.tokens.ParseRefreshBestEffort(refreshToken)
	if err != nil {
		s.metrics.RecordLogout(metrics.OutcomeRejected)
		return nil
	}
	revoked, err := s.sessions.Revoke(ctx, claims.SessionID)
	if err != nil {
		s.metrics.RecordLogout(metrics.OutcomeError)
		return serviceFailure("revoke session", err)
	}
	s.metrics.RecordLogout(metrics.OutcomeSuccess)
	if revoked {
		s.metrics.RecordSessionsRevoked(1)
	}
	s.audit.LogEvent(ctx, claims.Subject, audit.ActionLogout, audit.ResourceSession, claims.SessionID)
	return nil
}

// Me returns the profile of userID.
func (s *AuthService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, serviceFailure("find user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	roles, err := s.roles.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return profileOf(user, roles), nil
}

// ListSessions returns the active sessions of userID, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	list, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, serviceFailure("list sessions", err)
	}
	return list, nil
}

// RevokeSession revokes one of userID's own sessions. Sessions of other users are reported as not found.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return serviceFailure("find session", err)
	}
	if sess == nil || sess.UserID != userID {
		return ErrSessionNotFound
	}
	revoked, err := s.sessions.Revoke(ctx, sessionID)
	if err != nil {
		return serviceFailure("revoke session", err)
	}
	if revoked {
		s.metrics.RecordSessionsRevoked(1)
	}
	s.audit.LogEvent(ctx, userID, audit.ActionSessionRevoked, audit.ResourceSession, sessionID)
	return nil
}

// RevokeAllSessions revokes every open session of userID and returns how many were revoked.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID string) (int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, serviceFailure("find user", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	n, err := s.sessions.RevokeAllByUser(ctx, userID)
	if err != nil {
		return 0, serviceFailure("revoke sessions", err)
	}
	s.metrics.RecordSessionsRevoked(n)
	return n, nil
}

// AssignRole grants role to userID. Tokens issued afterwards carry it; existing access tokens do not.
func (s *AuthService) AssignRole(ctx context.Context, userID, role string) error {
	err := s.users.AssignRole(ctx, userID, role)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, userrepo.ErrUnknownRole):
		return ErrUnknownRole
	case errors.Is(err, userrepo.ErrUserNotFound):
		return ErrUserNotFound
	default:
		return serviceFailure("assign role", err)
	}
}

func (s *AuthService) issuePair(user *userdomain.User, roles []string, sessionID string, expiresAt time.Time) (*TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(user.Username, user.ID, roles)
	if err != nil {
		return nil, serviceFailure("issue access token", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(sessionID, user.ID, expiresAt)
	if err != nil {
		return nil, serviceFailure("issue refresh token", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
		SessionID:        sessionID,
		UserID:           user.ID,
	}, nil
}

func (s *AuthService) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.log
}

func profileOf(u *userdomain.User, roles []string) *Profile {
	return &Profile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
		Surname:  u.Surname,
		Roles:    roles,
	}
}
