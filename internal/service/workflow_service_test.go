package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/events"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

func TestTransition_InvalidLeavesStatusUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	for _, target := range []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusOnHold,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusNew,
	} {
		_, err := h.workflow.Transition(ctx, ticket.ID, target, coordinator, TransitionOptions{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "target %s", target)
		assert.Equal(t, domain.TicketStatusNew, h.status(t, ticket.ID))
	}

	entries, err := h.tickets.StatusHistory(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransition_AssignedRequiresAssignment(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket(t)

	_, err := h.workflow.Transition(context.Background(), ticket.ID, domain.TicketStatusAssigned, coordinator, TransitionOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingAssignment))
	assert.Equal(t, domain.TicketStatusNew, h.status(t, ticket.ID))
}

func TestTransition_AssignedWithSuppliedAssignment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)
	h.dispatcher.reset()

	updated, err := h.workflow.Transition(ctx, ticket.ID, domain.TicketStatusAssigned, coordinator, TransitionOptions{
		Comment:    "dispatching partner",
		Assignment: &AssignmentInput{EngineerID: h.dan.ID, Tier: domain.TierPartner},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, updated.Status)
	require.NotNil(t, updated.AssignedEngineerName)
	assert.Equal(t, "Dan", *updated.AssignedEngineerName)
	assert.Equal(t, ticket.Version+1, updated.Version)

	records, err := h.assignments.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.AssignmentStatusActive, records[0].Status)
	assert.Equal(t, h.delta.ID, records[0].OrganizationID)
	assert.Equal(t, coordinator.ID, records[0].AssignedBy)

	assert.Equal(t, []events.EventType{events.EventTicketStatusChanged, events.EventTicketAssigned}, h.dispatcher.types())

	entries, err := h.tickets.StatusHistory(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TicketStatusNew, entries[0].FromStatus)
	assert.Equal(t, domain.TicketStatusAssigned, entries[0].ToStatus)
	assert.Equal(t, coordinator.ID, entries[0].ActorID)
	assert.Equal(t, "dispatching partner", entries[0].Comment)
}

func TestTransition_SuppliedAssignmentOnlyForAssigned(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket(t)
	_, err := h.workflow.Transition(context.Background(), ticket.ID, domain.TicketStatusCancelled, coordinator, TransitionOptions{
		Assignment: &AssignmentInput{EngineerID: h.dan.ID, Tier: domain.TierPartner},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestTransition_LifecycleCompletesAssignment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	_, err := h.assignments.Assign(ctx, ticket.ID, h.olga.ID, domain.TierOEM, coordinator)
	require.NoError(t, err)

	steps := []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusOnHold,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
	}
	for _, target := range steps {
		_, err := h.workflow.Transition(ctx, ticket.ID, target, coordinator, TransitionOptions{})
		require.NoError(t, err, "to %s", target)
	}
	assert.Equal(t, 0, h.activeCount(t, ticket.ID))

	records, err := h.assignments.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.AssignmentStatusCompleted, records[0].Status)
	assert.NotNil(t, records[0].EndedAt)

	closed, err := h.workflow.Transition(ctx, ticket.ID, domain.TicketStatusClosed, coordinator, TransitionOptions{})
	require.NoError(t, err)
	assert.NotNil(t, closed.ClosedAt)

	entries, err := h.tickets.StatusHistory(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, domain.TicketStatusAssigned, entries[0].ToStatus)
	assert.Equal(t, domain.TicketStatusClosed, entries[5].ToStatus)
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cancelled := h.newTicket(t)
	_, err := h.workflow.Transition(ctx, cancelled.ID, domain.TicketStatusCancelled, coordinator, TransitionOptions{})
	require.NoError(t, err)

	closed := h.newTicket(t)
	_, err = h.assignments.Assign(ctx, closed.ID, h.olga.ID, domain.TierOEM, coordinator)
	require.NoError(t, err)
	for _, target := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed} {
		_, err = h.workflow.Transition(ctx, closed.ID, target, coordinator, TransitionOptions{})
		require.NoError(t, err)
	}

	all := []domain.TicketStatus{
		domain.TicketStatusNew, domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusOnHold,
		domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusCancelled,
	}
	for _, ticket := range []*domain.Ticket{cancelled, closed} {
		before := h.status(t, ticket.ID)
		for _, target := range all {
			_, err := h.workflow.Transition(ctx, ticket.ID, target, coordinator, TransitionOptions{})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "%s -> %s", before, target)
		}
		assert.Equal(t, before, h.status(t, ticket.ID))
	}

	_, err = h.assignments.Assign(ctx, cancelled.ID, h.olga.ID, domain.TierOEM, coordinator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestTransition_CancelCancelsActiveAssignment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)
	_, err := h.assignments.Assign(ctx, ticket.ID, h.sam.ID, domain.TierServiceProvider, coordinator)
	require.NoError(t, err)
	_, err = h.workflow.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, coordinator, TransitionOptions{})
	require.NoError(t, err)

	_, err = h.workflow.Transition(ctx, ticket.ID, domain.TicketStatusCancelled, coordinator, TransitionOptions{Comment: "duplicate"})
	require.NoError(t, err)

	records, err := h.assignments.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.AssignmentStatusCancelled, records[0].Status)
}

func TestTransition_ReopenFromResolved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)
	_, err := h.assignments.Assign(ctx, ticket.ID, h.olga.ID, domain.TierOEM, coordinator)
	require.NoError(t, err)
	for _, target := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusInProgress} {
		_, err = h.workflow.Transition(ctx, ticket.ID, target, coordinator, TransitionOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, domain.TicketStatusInProgress, h.status(t, ticket.ID))

	// the completed assignment stays completed; a fresh one may be recorded
	_, err = h.assignments.Assign(ctx, ticket.ID, h.dan.ID, domain.TierPartner, coordinator)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, h.status(t, ticket.ID))
	assert.Equal(t, 1, h.activeCount(t, ticket.ID))
}

func TestTransition_StaleVersionConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	stale := ticket.Version - 1
	_, err := h.workflow.Transition(ctx, ticket.ID, domain.TicketStatusCancelled, coordinator, TransitionOptions{ExpectedVersion: &stale})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, domain.TicketStatusNew, h.status(t, ticket.ID))

	current := ticket.Version
	_, err = h.workflow.Transition(ctx, ticket.ID, domain.TicketStatusCancelled, coordinator, TransitionOptions{ExpectedVersion: &current})
	require.NoError(t, err)
}

func TestTransition_UnknownInputs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	_, err := h.workflow.Transition(ctx, ticket.ID, "archived", coordinator, TransitionOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.workflow.Transition(ctx, "missing", domain.TicketStatusCancelled, coordinator, TransitionOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.workflow.Transition(ctx, ticket.ID, domain.TicketStatusCancelled, domain.Actor{}, TransitionOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestAllowedTransitions(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket(t)
	next, err := h.workflow.AllowedTransitions(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusCancelled}, next)
}
