package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// TicketTx exposes the mutable state of one ticket inside its critical
// section. Writes become visible only if the enclosing function succeeds.
type TicketTx interface {
	// Ticket returns the locked ticket as read at lock time.
	Ticket() *domain.Ticket
	// UpdateTicket persists status fields, failing with ErrStaleVersion when
	// ticket.Version no longer matches; on success ticket.Version advances.
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) error
	// ActiveAssignment returns the active assignment or nil.
	ActiveAssignment(ctx context.Context) (*domain.Assignment, error)
	InsertAssignment(ctx context.Context, assignment *domain.Assignment) error
	// CloseAssignment moves an active assignment to status, failing with ErrNotActive otherwise.
	CloseAssignment(ctx context.Context, id string, status domain.AssignmentStatus, reason string, at time.Time) error
	AppendHistory(ctx context.Context, entry *domain.StatusHistory) error
}

// TicketLocker serializes mutations per ticket id. Mutations on different
// tickets never wait for each other.
type TicketLocker interface {
	WithTicketLock(ctx context.Context, ticketID string, fn func(ctx context.Context, tx TicketTx) error) error
}

type pgTicketLocker struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTicketLocker returns a locker that holds a row lock on the ticket for the
// duration of a transaction. Waiting longer than lockTimeout fails with a
// lock_not_available error.
func NewTicketLocker(pool *pgxpool.Pool, lockTimeout time.Duration) TicketLocker {
	return &pgTicketLocker{pool: pool, lockTimeout: lockTimeout}
}

func (l *pgTicketLocker) WithTicketLock(ctx context.Context, ticketID string, fn func(ctx context.Context, tx TicketTx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if l.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.lockTimeout.Milliseconds())); err != nil {
			return err
		}
	}

	ticket, err := scanTicket(tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, ticketID))
	if err != nil {
		return err
	}
	if err := fn(ctx, &pgTicketTx{tx: tx, ticket: ticket}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTicketTx struct {
	tx     pgx.Tx
	ticket *domain.Ticket
}

func (t *pgTicketTx) Ticket() *domain.Ticket {
	return t.ticket
}

func (t *pgTicketTx) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	return updateTicketCAS(ctx, t.tx, ticket)
}

func (t *pgTicketTx) ActiveAssignment(ctx context.Context) (*domain.Assignment, error) {
	assignment, err := selectActiveAssignment(ctx, t.tx, t.ticket.ID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return assignment, err
}

func (t *pgTicketTx) InsertAssignment(ctx context.Context, assignment *domain.Assignment) error {
	assignment.TicketID = t.ticket.ID
	return insertAssignment(ctx, t.tx, assignment)
}

func (t *pgTicketTx) CloseAssignment(ctx context.Context, id string, status domain.AssignmentStatus, reason string, at time.Time) error {
	return closeAssignment(ctx, t.tx, id, status, reason, at)
}

func (t *pgTicketTx) AppendHistory(ctx context.Context, entry *domain.StatusHistory) error {
	entry.TicketID = t.ticket.ID
	return insertStatusHistory(ctx, t.tx, entry)
}
