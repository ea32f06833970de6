package repository

import (
	"context"
	"errors"
	"time"

	"mentorhub/backend/internal/session/domain"
)

// ErrSessionExists is returned by Create when the session id is already taken.
var ErrSessionExists = errors.New("session id already exists")

// Repository is the session registry. Refresh token values are passed in clear and stored only as hashes.
//
// Rotate is a single compare-and-swap: it succeeds only while the session is active and the stored
// token still equals expectedToken. Revoke is idempotent and, once applied, no Rotate can succeed;
// it reports true only when this call moved the session to revoked.
// A (false, nil) result from Validate or Rotate means the presented token was not accepted; a non-nil
// error means the backing store failed.
type Repository interface {
	Create(ctx context.Context, sessionID, userID, refreshToken string, expiresAt time.Time) error
	Validate(ctx context.Context, sessionID, refreshToken string) (bool, error)
	Rotate(ctx context.Context, sessionID, expectedToken, newToken string, newExpiresAt time.Time) (bool, error)
	Revoke(ctx context.Context, sessionID string) (bool, error)

	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	RevokeAllByUser(ctx context.Context, userID string) (int, error)
}

// Option configures a repository implementation.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the time source used for expiry checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
