// Package workflow holds the ticket status state machine.
package workflow

import (
	"github.com/spec-kit/equipment-service/internal/domain"
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusAssigned, domain.TicketStatusCancelled},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress: {domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusOnHold:     {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusClosed:     {},
	domain.TicketStatusCancelled:  {},
}

// Known reports whether status is part of the state machine.
func Known(status domain.TicketStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status domain.TicketStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// CanTransition reports whether current -> next is an edge of the state machine.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns a copy of the states reachable from current.
func NextStatuses(current domain.TicketStatus) []domain.TicketStatus {
	return append([]domain.TicketStatus(nil), allowedTransitions[current]...)
}

// Effect describes what the ledger must do alongside a transition.
type Effect int

const (
	EffectNone Effect = iota
	// EffectRequireAssignment: an active assignment must exist after the transition.
	EffectRequireAssignment
	// EffectCompleteAssignment: the active assignment, if any, becomes completed.
	EffectCompleteAssignment
	// EffectCancelAssignment: the active assignment, if any, becomes cancelled.
	EffectCancelAssignment
)

// EffectOf returns the ledger side effect of entering target.
func EffectOf(target domain.TicketStatus) Effect {
	switch target {
	case domain.TicketStatusAssigned:
		return EffectRequireAssignment
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		return EffectCompleteAssignment
	case domain.TicketStatusCancelled:
		return EffectCancelAssignment
	case domain.TicketStatusNew, domain.TicketStatusInProgress, domain.TicketStatusOnHold:
		return EffectNone
	}
	return EffectNone
}
