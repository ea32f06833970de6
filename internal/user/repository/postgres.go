package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mentorhub/backend/internal/db"
	"mentorhub/backend/internal/user/domain"
)

const userColumns = `id, username, email, name, surname, password_hash, created_at, updated_at`

// PostgresRepository stores users in the users and user_roles tables.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a user repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists the user and its roles. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User, roles ...string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create user: %w", db.MapError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, username, username_norm, email, name, surname, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, domain.NormalizeUsername(u.Username), u.Email, u.Name, u.Surname, u.PasswordHash,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		if db.IsUniqueViolation(err, "users_username_norm_key") {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("create user: %w", db.MapError(err))
	}
	for _, role := range roles {
		if err := assignRole(ctx, tx, u.ID, role); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("create user: %w", db.MapError(err))
	}
	return nil
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByUsername returns the user with the given username (case-insensitive), or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username_norm = $1`,
		domain.NormalizeUsername(username)))
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", db.MapError(err))
	}
	roles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", db.MapError(err))
	}
	return roles, nil
}

func (r *PostgresRepository) AssignRole(ctx context.Context, userID, role string) error {
	return assignRole(ctx, r.pool, userID, role)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func assignRole(ctx context.Context, q execer, userID, role string) error {
	_, err := q.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, role)
	switch {
	case err == nil:
		return nil
	case db.IsForeignKeyViolation(err, "user_roles_role_fkey"):
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	case db.IsForeignKeyViolation(err, "user_roles_user_id_fkey"):
		return ErrUserNotFound
	default:
		return fmt.Errorf("assign role: %w", db.MapError(err))
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.Surname, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, db.MapError(err)
	}
	return &u, nil
}
