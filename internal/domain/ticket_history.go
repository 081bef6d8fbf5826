package domain

import "time"

// StatusHistory is an immutable audit entry for a ticket status transition.
type StatusHistory struct {
	ID         string
	TicketID   string
	FromStatus TicketStatus
	ToStatus   TicketStatus
	ActorID    string
	Comment    string
	CreatedAt  time.Time
}
