package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/equipment-service/internal/domain"
)

var allStatuses = []domain.TicketStatus{
	domain.TicketStatusNew,
	domain.TicketStatusAssigned,
	domain.TicketStatusInProgress,
	domain.TicketStatusOnHold,
	domain.TicketStatusResolved,
	domain.TicketStatusClosed,
	domain.TicketStatusCancelled,
}

func TestCanTransition_Graph(t *testing.T) {
	cases := []struct {
		from, to domain.TicketStatus
		want     bool
	}{
		{domain.TicketStatusNew, domain.TicketStatusAssigned, true},
		{domain.TicketStatusNew, domain.TicketStatusInProgress, false},
		{domain.TicketStatusAssigned, domain.TicketStatusInProgress, true},
		{domain.TicketStatusAssigned, domain.TicketStatusResolved, false},
		{domain.TicketStatusInProgress, domain.TicketStatusOnHold, true},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{domain.TicketStatusOnHold, domain.TicketStatusInProgress, true},
		{domain.TicketStatusOnHold, domain.TicketStatusResolved, false},
		{domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{domain.TicketStatusResolved, domain.TicketStatusInProgress, true},
		{domain.TicketStatusResolved, domain.TicketStatusNew, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCancelledReachableFromEveryNonTerminalState(t *testing.T) {
	for _, status := range allStatuses {
		if IsTerminal(status) {
			continue
		}
		assert.True(t, CanTransition(status, domain.TicketStatusCancelled), "%s -> cancelled", status)
	}
}

func TestTerminalStatesHaveNoExit(t *testing.T) {
	for _, terminal := range []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusCancelled} {
		assert.True(t, IsTerminal(terminal))
		for _, target := range allStatuses {
			assert.False(t, CanTransition(terminal, target), "%s -> %s", terminal, target)
		}
	}
}

func TestUnknownStatus(t *testing.T) {
	assert.False(t, Known("escalated"))
	assert.False(t, CanTransition("escalated", domain.TicketStatusCancelled))
	for _, status := range allStatuses {
		assert.True(t, Known(status))
	}
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextStatuses(domain.TicketStatusNew)
	next[0] = domain.TicketStatusClosed
	assert.True(t, CanTransition(domain.TicketStatusNew, domain.TicketStatusAssigned))
}

func TestEffectOf(t *testing.T) {
	assert.Equal(t, EffectRequireAssignment, EffectOf(domain.TicketStatusAssigned))
	assert.Equal(t, EffectCompleteAssignment, EffectOf(domain.TicketStatusResolved))
	assert.Equal(t, EffectCompleteAssignment, EffectOf(domain.TicketStatusClosed))
	assert.Equal(t, EffectCancelAssignment, EffectOf(domain.TicketStatusCancelled))
	assert.Equal(t, EffectNone, EffectOf(domain.TicketStatusOnHold))
}
