package domain

import "time"

// State is the lifecycle state of a session at a point in time.
type State string

const (
	StateActive  State = "active"
	StateRevoked State = "revoked"
	StateExpired State = "expired"
)

// Session is the server-side record behind one login. RefreshTokenHash is the SHA-256 of the only
// refresh token currently accepted for it.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	IssuedAt         time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	LastRotatedAt    *time.Time
}

// State reports the session's state at now. Revocation takes precedence over expiry.
func (s *Session) State(now time.Time) State {
	switch {
	case s.RevokedAt != nil:
		return StateRevoked
	case !now.Before(s.ExpiresAt):
		return StateExpired
	default:
		return StateActive
	}
}

// Active reports whether the session can still be rotated at now.
func (s *Session) Active(now time.Time) bool {
	return s.State(now) == StateActive
}
