package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mentorhub/backend/internal/db"
	"mentorhub/backend/internal/security"
	"mentorhub/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, refresh_token_hash, issued_at, expires_at, revoked_at, last_rotated_at`

// PostgresRepository stores sessions in the sessions table.
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresRepository returns a session repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool, opts ...Option) *PostgresRepository {
	o := applyOptions(opts)
	return &PostgresRepository{pool: pool, now: o.now}
}

func (r *PostgresRepository) Create(ctx context.Context, sessionID, userID, refreshToken string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, refresh_token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sessionID, userID, security.HashRefreshToken(refreshToken), r.now().UTC(), expiresAt.UTC())
	if err != nil {
		if db.IsUniqueViolation(err, "sessions_pkey") {
			return ErrSessionExists
		}
		return fmt.Errorf("create session: %w", db.MapError(err))
	}
	return nil
}

func (r *PostgresRepository) Validate(ctx context.Context, sessionID, refreshToken string) (bool, error) {
	s, err := r.GetByID(ctx, sessionID)
	if err != nil || s == nil {
		return false, err
	}
	return s.Active(r.now()) && security.RefreshTokenMatches(s.RefreshTokenHash, refreshToken), nil
}

// Rotate is one conditional UPDATE. Concurrent rotations of the same row serialize on its row lock and
// the loser re-evaluates the WHERE clause against the winner's hash, so it matches zero rows.
func (r *PostgresRepository) Rotate(ctx context.Context, sessionID, expectedToken, newToken string, newExpiresAt time.Time) (bool, error) {
	now := r.now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET refresh_token_hash = $3,
		    expires_at = GREATEST(expires_at, $4),
		    last_rotated_at = $5
		WHERE id = $1
		  AND refresh_token_hash = $2
		  AND revoked_at IS NULL
		  AND expires_at > $5`,
		sessionID, security.HashRefreshToken(expectedToken), security.HashRefreshToken(newToken), newExpiresAt.UTC(), now)
	if err != nil {
		return false, fmt.Errorf("rotate session: %w", db.MapError(err))
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, sessionID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		sessionID, r.now().UTC())
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", db.MapError(err))
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", db.MapError(err))
	}
	return s, nil
}

func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY issued_at DESC`, userID, r.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", db.MapError(err))
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", db.MapError(err))
	}
	return out, nil
}

func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", db.MapError(err))
	}
	return int(tag.RowsAffected()), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.IssuedAt, &s.ExpiresAt, &s.RevokedAt, &s.LastRotatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
