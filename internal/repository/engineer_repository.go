package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// EngineerRepository handles persistence for field engineers.
type EngineerRepository interface {
	Create(ctx context.Context, engineer *domain.Engineer) error
	GetByID(ctx context.Context, id string) (*domain.Engineer, error)
	List(ctx context.Context, filter EngineerFilter) ([]domain.Engineer, error)
	UpdateStatus(ctx context.Context, id string, status domain.EngineerStatus) error
}

// EngineerFilter defines query params for engineer listing.
type EngineerFilter struct {
	OrganizationID *string
	Status         *domain.EngineerStatus
	Level          *domain.EngineerLevel
	Limit          int
	Offset         int
}

type engineerRepository struct {
	pool *pgxpool.Pool
}

// NewEngineerRepository instantiates the repository.
func NewEngineerRepository(pool *pgxpool.Pool) EngineerRepository {
	return &engineerRepository{pool: pool}
}

const engineerColumns = `id, name, email, phone, organization_id, specializations, engineer_level, status, created_at, updated_at`

func (r *engineerRepository) Create(ctx context.Context, engineer *domain.Engineer) error {
	const query = `
        INSERT INTO engineers (name, email, phone, organization_id, specializations, engineer_level, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		engineer.Name,
		engineer.Email,
		engineer.Phone,
		engineer.OrganizationID,
		engineer.Specializations,
		engineer.Level,
		engineer.Status,
	).Scan(&engineer.ID, &engineer.CreatedAt, &engineer.UpdatedAt)
}

func (r *engineerRepository) GetByID(ctx context.Context, id string) (*domain.Engineer, error) {
	query := `SELECT ` + engineerColumns + ` FROM engineers WHERE id=$1`
	return scanEngineer(r.pool.QueryRow(ctx, query, id))
}

func (r *engineerRepository) List(ctx context.Context, filter EngineerFilter) ([]domain.Engineer, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Level != nil {
		args = append(args, *filter.Level)
		clauses = append(clauses, fmt.Sprintf("engineer_level=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM engineers WHERE %s ORDER BY engineer_level DESC, name ASC, id ASC LIMIT %d OFFSET %d`,
		engineerColumns, strings.Join(clauses, " AND "), limit, offset)
	return queryEngineers(ctx, r.pool, query, args...)
}

func (r *engineerRepository) UpdateStatus(ctx context.Context, id string, status domain.EngineerStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE engineers SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func queryEngineers(ctx context.Context, db DBTX, query string, args ...any) ([]domain.Engineer, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Engineer
	for rows.Next() {
		engineer, err := scanEngineer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *engineer)
	}
	return result, rows.Err()
}

func scanEngineer(row pgx.Row) (*domain.Engineer, error) {
	var engineer domain.Engineer
	if err := row.Scan(
		&engineer.ID,
		&engineer.Name,
		&engineer.Email,
		&engineer.Phone,
		&engineer.OrganizationID,
		&engineer.Specializations,
		&engineer.Level,
		&engineer.Status,
		&engineer.CreatedAt,
		&engineer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &engineer, nil
}
