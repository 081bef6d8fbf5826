package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/repository"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

// Auto-assign policy names accepted by NewPicker.
const (
	PolicyHash        = "hash"
	PolicyLeastLoaded = "least_loaded"
)

// EngineerPicker chooses one engineer out of a tier's pool for auto-assignment.
// The pool is never empty and is ordered as the resolver returned it.
type EngineerPicker interface {
	Pick(ctx context.Context, ticket *domain.Ticket, pool []domain.Engineer) (domain.Engineer, error)
}

// HashPicker spreads tickets over the pool by hashing the ticket id. The
// same ticket and pool always yield the same engineer.
type HashPicker struct{}

// Pick implements EngineerPicker.
func (HashPicker) Pick(_ context.Context, ticket *domain.Ticket, pool []domain.Engineer) (domain.Engineer, error) {
	if len(pool) == 0 {
		return domain.Engineer{}, apperrors.NewNoEligibleEngineer(ticket.ID)
	}
	return pool[selectIndex(ticket.ID, len(pool))], nil
}

// LeastLoadedPicker prefers the engineer holding the fewest active
// assignments; ties keep pool order.
type LeastLoadedPicker struct {
	Assignments repository.AssignmentRepository
}

// Pick implements EngineerPicker.
func (p LeastLoadedPicker) Pick(ctx context.Context, ticket *domain.Ticket, pool []domain.Engineer) (domain.Engineer, error) {
	if len(pool) == 0 {
		return domain.Engineer{}, apperrors.NewNoEligibleEngineer(ticket.ID)
	}
	ids := make([]string, len(pool))
	for i, engineer := range pool {
		ids[i] = engineer.ID
	}
	load, err := p.Assignments.CountActiveByEngineer(ctx, ids)
	if err != nil {
		return domain.Engineer{}, fmt.Errorf("count active assignments: %w", err)
	}
	best := 0
	for i := 1; i < len(pool); i++ {
		if load[pool[i].ID] < load[pool[best].ID] {
			best = i
		}
	}
	return pool[best], nil
}

// NewPicker builds the picker for a configured policy name.
func NewPicker(policy string, assignments repository.AssignmentRepository) (EngineerPicker, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyHash:
		return HashPicker{}, nil
	case PolicyLeastLoaded:
		return LeastLoadedPicker{Assignments: assignments}, nil
	default:
		return nil, fmt.Errorf("unknown auto-assign policy %q", policy)
	}
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}
