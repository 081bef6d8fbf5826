package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// EquipmentRepository persists installed equipment.
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *domain.Equipment) error
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
}

type equipmentRepository struct {
	pool *pgxpool.Pool
}

// NewEquipmentRepository instantiates the repository.
func NewEquipmentRepository(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepository{pool: pool}
}

func (r *equipmentRepository) Create(ctx context.Context, equipment *domain.Equipment) error {
	const query = `
        INSERT INTO equipment (serial_number, name, category, manufacturer_id, customer_org_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		equipment.SerialNumber,
		equipment.Name,
		equipment.Category,
		equipment.ManufacturerID,
		equipment.CustomerOrgID,
	).Scan(&equipment.ID, &equipment.CreatedAt)
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	const query = `
        SELECT id, serial_number, name, category, manufacturer_id, customer_org_id, created_at
        FROM equipment WHERE id=$1`
	return scanEquipment(r.pool.QueryRow(ctx, query, id))
}

func scanEquipment(row pgx.Row) (*domain.Equipment, error) {
	var equipment domain.Equipment
	if err := row.Scan(
		&equipment.ID,
		&equipment.SerialNumber,
		&equipment.Name,
		&equipment.Category,
		&equipment.ManufacturerID,
		&equipment.CustomerOrgID,
		&equipment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &equipment, nil
}
