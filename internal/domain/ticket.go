package domain

import "time"

// TicketStatus enumerates lifecycle states for service tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusOnHold     TicketStatus = "on_hold"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// TicketPriority enumerates service urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for equipment service requests. Everything except
// Status, AssignedEngineerName, Version and the timestamps is fixed at creation.
type Ticket struct {
	ID                   string
	TicketNumber         string
	EquipmentID          string
	ManufacturerID       string
	CustomerOrgID        string
	Title                string
	Description          string
	Priority             TicketPriority
	Status               TicketStatus
	AssignedEngineerName *string
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ClosedAt             *time.Time
}
