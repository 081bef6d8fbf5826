package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStaleVersion is returned when a compare-and-swap update finds the row
// changed since it was read.
var ErrStaleVersion = errors.New("stale version")

// ErrNotActive is returned when an assignment expected to be active is not.
var ErrNotActive = errors.New("assignment not active")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrDuplicate is returned by stores that enforce uniqueness without a
// database constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrLockTimeout is returned when a ticket lock could not be acquired in time.
var ErrLockTimeout = errors.New("ticket lock wait timed out")
