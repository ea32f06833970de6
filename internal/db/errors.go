package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUnavailable marks errors caused by the database being unreachable or overloaded.
var ErrUnavailable = errors.New("database unavailable")

// IsUniqueViolation reports whether err is a unique violation, optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err is a foreign key violation, optionally on a specific constraint.
func IsForeignKeyViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.ForeignKeyViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// MapError annotates Postgres errors with their class. Connection-level failures wrap ErrUnavailable.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection,
		pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict: %w", err)
	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)
	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, err)
	}
}
