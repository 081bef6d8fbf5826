package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/equipment-service/internal/domain"
)

func TestHashPicker_Deterministic(t *testing.T) {
	pool := []domain.Engineer{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	ticket := &domain.Ticket{ID: "ticket-42"}

	first, err := HashPicker{}.Pick(context.Background(), ticket, pool)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := HashPicker{}.Pick(context.Background(), ticket, pool)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}
	assert.Equal(t, pool[selectIndex(ticket.ID, len(pool))].ID, first.ID)
}

func TestLeastLoadedPicker(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	busy := h.newTicket(t)
	_, err := h.assignments.Assign(ctx, busy.ID, h.dan.ID, domain.TierPartner, coordinator)
	require.NoError(t, err)

	picker := LeastLoadedPicker{Assignments: h.store.Assignments()}
	picked, err := picker.Pick(ctx, h.newTicket(t), []domain.Engineer{h.dan, h.dora})
	require.NoError(t, err)
	assert.Equal(t, h.dora.ID, picked.ID)

	picked, err = picker.Pick(ctx, h.newTicket(t), []domain.Engineer{h.sam, h.hana})
	require.NoError(t, err)
	assert.Equal(t, h.sam.ID, picked.ID, "ties keep pool order")
}

func TestNewPicker(t *testing.T) {
	p, err := NewPicker("", nil)
	require.NoError(t, err)
	assert.IsType(t, HashPicker{}, p)

	p, err = NewPicker("Least_Loaded", nil)
	require.NoError(t, err)
	assert.IsType(t, LeastLoadedPicker{}, p)

	_, err = NewPicker("random", nil)
	assert.Error(t, err)
}
