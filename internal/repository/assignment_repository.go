package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// AssignmentRepository reads the assignment ledger. Ledger writes happen only
// inside the per-ticket critical section (see TicketTx).
type AssignmentRepository interface {
	// ListByTicket returns the ledger most-recent-first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error)
	// GetActive returns the active assignment, or pgx.ErrNoRows.
	GetActive(ctx context.Context, ticketID string) (*domain.Assignment, error)
	CountActiveByEngineer(ctx context.Context, engineerIDs []string) (map[string]int, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `id, ticket_id, engineer_id, engineer_name, organization_id, assignment_tier,
               status, reason, assigned_by, assigned_at, ended_at`

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE ticket_id=$1 ORDER BY seq DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *assignment)
	}
	return result, rows.Err()
}

func (r *assignmentRepository) GetActive(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	return selectActiveAssignment(ctx, r.pool, ticketID)
}

func (r *assignmentRepository) CountActiveByEngineer(ctx context.Context, engineerIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(engineerIDs))
	if len(engineerIDs) == 0 {
		return counts, nil
	}
	const query = `
        SELECT engineer_id, COUNT(*) FROM assignments
        WHERE status='active' AND engineer_id = ANY($1::uuid[])
        GROUP BY engineer_id`
	rows, err := r.pool.Query(ctx, query, engineerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

func selectActiveAssignment(ctx context.Context, db DBTX, ticketID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE ticket_id=$1 AND status='active'`
	return scanAssignment(db.QueryRow(ctx, query, ticketID))
}

func insertAssignment(ctx context.Context, db DBTX, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO assignments (ticket_id, engineer_id, engineer_name, organization_id, assignment_tier, status, reason, assigned_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, assigned_at`
	return db.QueryRow(ctx, query,
		assignment.TicketID,
		assignment.EngineerID,
		assignment.EngineerName,
		assignment.OrganizationID,
		assignment.Tier,
		assignment.Status,
		assignment.Reason,
		assignment.AssignedBy,
	).Scan(&assignment.ID, &assignment.AssignedAt)
}

// closeAssignment moves an active record to a final status. Only active rows
// are touched so the ledger stays append-only.
func closeAssignment(ctx context.Context, db DBTX, id string, status domain.AssignmentStatus, reason string, at time.Time) error {
	const query = `
        UPDATE assignments SET status=$1, reason=CASE WHEN $2::text = '' THEN reason ELSE $2::text END, ended_at=$3
        WHERE id=$4 AND status='active'`
	cmd, err := db.Exec(ctx, query, status, reason, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotActive
	}
	return nil
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var assignment domain.Assignment
	if err := row.Scan(
		&assignment.ID,
		&assignment.TicketID,
		&assignment.EngineerID,
		&assignment.EngineerName,
		&assignment.OrganizationID,
		&assignment.Tier,
		&assignment.Status,
		&assignment.Reason,
		&assignment.AssignedBy,
		&assignment.AssignedAt,
		&assignment.EndedAt,
	); err != nil {
		return nil, err
	}
	return &assignment, nil
}
