package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mentorhub/backend/internal/audit/domain"
	"mentorhub/backend/internal/db"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns an audit log repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.Action, a.Resource, a.IP, a.Metadata, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create audit log: %w", db.MapError(err))
	}
	return nil
}

// ListByUser returns entries for userID, newest first. A non-positive limit returns all of them.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	var lim any = limit
	if limit <= 0 {
		lim = nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, resource, ip, metadata, created_at
		FROM audit_logs WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", db.MapError(err))
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AuditLog, error) {
		var a domain.AuditLog
		err := row.Scan(&a.ID, &a.UserID, &a.Action, &a.Resource, &a.IP, &a.Metadata, &a.CreatedAt)
		return &a, err
	})
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", db.MapError(err))
	}
	return list, nil
}
