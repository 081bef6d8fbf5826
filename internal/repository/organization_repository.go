package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// OrganizationFilter defines query params for organization listing.
type OrganizationFilter struct {
	Type   *domain.OrgType
	Status *domain.OrgStatus
	Limit  int
	Offset int
}

// OrganizationRepository handles persistence for organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	List(ctx context.Context, filter OrganizationFilter) ([]domain.Organization, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrgStatus) error
}

type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository instantiates the repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

const organizationColumns = `id, name, org_type, status, specializations, created_at, updated_at`

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	const query = `
        INSERT INTO organizations (name, org_type, status, specializations)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		org.Name,
		org.Type,
		org.Status,
		org.Specializations,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id=$1`
	org, err := scanOrganization(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (r *organizationRepository) List(ctx context.Context, filter OrganizationFilter) ([]domain.Organization, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("org_type=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE %s ORDER BY name ASC, id ASC LIMIT %d OFFSET %d`,
		organizationColumns, strings.Join(clauses, " AND "), limit, offset)
	return queryOrganizations(ctx, r.pool, query, args...)
}

func (r *organizationRepository) UpdateStatus(ctx context.Context, id string, status domain.OrgStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE organizations SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func queryOrganizations(ctx context.Context, db DBTX, query string, args ...any) ([]domain.Organization, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *org)
	}
	return result, rows.Err()
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var org domain.Organization
	if err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Type,
		&org.Status,
		&org.Specializations,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}
