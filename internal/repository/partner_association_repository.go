package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// PartnerAssociationRepository persists the partner edges of the organization graph.
type PartnerAssociationRepository interface {
	Create(ctx context.Context, assoc *domain.PartnerAssociation) error
	ListByParent(ctx context.Context, parentOrgID string) ([]domain.PartnerAssociation, error)
	// Find returns the edge identified by the triple, or pgx.ErrNoRows.
	Find(ctx context.Context, parentOrgID, partnerOrgID string, equipmentID *string) (*domain.PartnerAssociation, error)
	// FindSpecific returns the equipment-specific edge for (parent, equipment), or pgx.ErrNoRows.
	FindSpecific(ctx context.Context, parentOrgID, equipmentID string) (*domain.PartnerAssociation, error)
	// UpdateRelType relabels an existing edge, or returns pgx.ErrNoRows.
	UpdateRelType(ctx context.Context, id, relType string) error
	// Delete removes the edge identified by the triple and reports how many rows went away.
	Delete(ctx context.Context, parentOrgID, partnerOrgID string, equipmentID *string) (int64, error)
}

type partnerAssociationRepository struct {
	pool *pgxpool.Pool
}

// NewPartnerAssociationRepository instantiates the repository.
func NewPartnerAssociationRepository(pool *pgxpool.Pool) PartnerAssociationRepository {
	return &partnerAssociationRepository{pool: pool}
}

const associationColumns = `id, parent_org_id, partner_org_id, association_type, equipment_id, rel_type, created_at`

func (r *partnerAssociationRepository) Create(ctx context.Context, assoc *domain.PartnerAssociation) error {
	const query = `
        INSERT INTO partner_associations (parent_org_id, partner_org_id, association_type, equipment_id, rel_type)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		assoc.ParentOrgID,
		assoc.PartnerOrgID,
		assoc.AssociationType,
		assoc.EquipmentID,
		assoc.RelType,
	).Scan(&assoc.ID, &assoc.CreatedAt)
}

func (r *partnerAssociationRepository) ListByParent(ctx context.Context, parentOrgID string) ([]domain.PartnerAssociation, error) {
	query := `SELECT ` + associationColumns + ` FROM partner_associations WHERE parent_org_id=$1 ORDER BY created_at ASC, id ASC`
	return queryAssociations(ctx, r.pool, query, parentOrgID)
}

func (r *partnerAssociationRepository) Find(ctx context.Context, parentOrgID, partnerOrgID string, equipmentID *string) (*domain.PartnerAssociation, error) {
	query := `SELECT ` + associationColumns + ` FROM partner_associations
        WHERE parent_org_id=$1 AND partner_org_id=$2 AND equipment_id IS NOT DISTINCT FROM $3`
	return scanAssociation(r.pool.QueryRow(ctx, query, parentOrgID, partnerOrgID, equipmentID))
}

func (r *partnerAssociationRepository) FindSpecific(ctx context.Context, parentOrgID, equipmentID string) (*domain.PartnerAssociation, error) {
	query := `SELECT ` + associationColumns + ` FROM partner_associations
        WHERE parent_org_id=$1 AND equipment_id=$2 AND association_type='equipment_specific'`
	return scanAssociation(r.pool.QueryRow(ctx, query, parentOrgID, equipmentID))
}

func (r *partnerAssociationRepository) UpdateRelType(ctx context.Context, id, relType string) error {
	const query = `UPDATE partner_associations SET rel_type=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, relType, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *partnerAssociationRepository) Delete(ctx context.Context, parentOrgID, partnerOrgID string, equipmentID *string) (int64, error) {
	const query = `
        DELETE FROM partner_associations
        WHERE parent_org_id=$1 AND partner_org_id=$2 AND equipment_id IS NOT DISTINCT FROM $3`
	cmd, err := r.pool.Exec(ctx, query, parentOrgID, partnerOrgID, equipmentID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func queryAssociations(ctx context.Context, db DBTX, query string, args ...any) ([]domain.PartnerAssociation, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.PartnerAssociation
	for rows.Next() {
		assoc, err := scanAssociation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *assoc)
	}
	return result, rows.Err()
}

func scanAssociation(row pgx.Row) (*domain.PartnerAssociation, error) {
	var assoc domain.PartnerAssociation
	if err := row.Scan(
		&assoc.ID,
		&assoc.ParentOrgID,
		&assoc.PartnerOrgID,
		&assoc.AssociationType,
		&assoc.EquipmentID,
		&assoc.RelType,
		&assoc.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &assoc, nil
}
