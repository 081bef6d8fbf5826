package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// TicketHistoryRepository reads the status audit log. Entries are written
// inside the per-ticket critical section (see TicketTx.AppendHistory).
type TicketHistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func insertStatusHistory(ctx context.Context, db DBTX, history *domain.StatusHistory) error {
	const query = `
        INSERT INTO ticket_status_history (ticket_id, from_status, to_status, actor_id, comment)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return db.QueryRow(ctx, query,
		history.TicketID,
		history.FromStatus,
		history.ToStatus,
		history.ActorID,
		history.Comment,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusHistory, error) {
	const query = `
        SELECT id, ticket_id, from_status, to_status, actor_id, comment, created_at
        FROM ticket_status_history WHERE ticket_id=$1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistory
	for rows.Next() {
		var history domain.StatusHistory
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.FromStatus,
			&history.ToStatus,
			&history.ActorID,
			&history.Comment,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
