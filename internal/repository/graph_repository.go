package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-service/internal/resolver"
)

// GraphReader produces consistent snapshots of the organization graph.
type GraphReader interface {
	Snapshot(ctx context.Context) (*resolver.Graph, error)
}

type graphRepository struct {
	pool *pgxpool.Pool
}

// NewGraphRepository returns a GraphReader that reads organizations,
// associations and engineers within one repeatable-read transaction.
func NewGraphRepository(pool *pgxpool.Pool) GraphReader {
	return &graphRepository{pool: pool}
}

func (r *graphRepository) Snapshot(ctx context.Context) (*resolver.Graph, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	orgs, err := queryOrganizations(ctx, tx, `SELECT `+organizationColumns+` FROM organizations WHERE status='active'`)
	if err != nil {
		return nil, err
	}
	assocs, err := queryAssociations(ctx, tx, `SELECT `+associationColumns+` FROM partner_associations`)
	if err != nil {
		return nil, err
	}
	engineers, err := queryEngineers(ctx, tx, `SELECT `+engineerColumns+` FROM engineers WHERE status='active'`)
	if err != nil {
		return nil, err
	}
	return resolver.NewGraph(orgs, assocs, engineers), nil
}
