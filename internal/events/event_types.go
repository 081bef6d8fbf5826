package events

import (
	"time"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketReassigned    EventType = "ticket_reassigned"
	EventAssignmentCompleted EventType = "assignment_completed"
)

// AllEventTypes lists every event type, for subscribers interested in all of them.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketReassigned,
	EventAssignmentCompleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.ActorType `json:"type"`
	ID   string           `json:"id"`
}

// Event is the structured outcome of a committed mutation.
type Event struct {
	ID        string              `json:"id"`
	Type      EventType           `json:"type"`
	TicketID  string              `json:"ticket_id"`
	Status    domain.TicketStatus `json:"status"`
	Actor     Actor               `json:"actor"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   interface{}         `json:"payload"`
}

// AssignmentSummary is the event form of an assignment record.
type AssignmentSummary struct {
	ID             string                  `json:"id"`
	EngineerID     string                  `json:"engineer_id"`
	EngineerName   string                  `json:"engineer_name"`
	OrganizationID string                  `json:"organization_id"`
	Tier           domain.AssignmentTier   `json:"tier"`
	Status         domain.AssignmentStatus `json:"status"`
	Reason         string                  `json:"reason,omitempty"`
}

// NewAssignmentSummary converts a ledger record.
func NewAssignmentSummary(a *domain.Assignment) *AssignmentSummary {
	if a == nil {
		return nil
	}
	return &AssignmentSummary{
		ID:             a.ID,
		EngineerID:     a.EngineerID,
		EngineerName:   a.EngineerName,
		OrganizationID: a.OrganizationID,
		Tier:           a.Tier,
		Status:         a.Status,
		Reason:         a.Reason,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber   string                `json:"ticket_number"`
	EquipmentID    string                `json:"equipment_id"`
	ManufacturerID string                `json:"manufacturer_id"`
	CustomerOrgID  string                `json:"customer_org_id"`
	Priority       domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	Comment    string              `json:"comment,omitempty"`
	Assignment *AssignmentSummary  `json:"assignment,omitempty"`
}

// TicketAssignedPayload payload, also used for reassignment and completion.
type TicketAssignedPayload struct {
	Assignment *AssignmentSummary `json:"assignment"`
	Previous   *AssignmentSummary `json:"previous,omitempty"`
}
