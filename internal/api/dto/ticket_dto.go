package dto

import (
	"time"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	EquipmentID string                `json:"equipment_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// TransitionRequest moves a ticket to a new status. Version is the ticket
// version the caller last observed; Assignment is only accepted together
// with status "assigned".
type TransitionRequest struct {
	Status     domain.TicketStatus `json:"status"`
	Comment    string              `json:"comment"`
	Version    *int64              `json:"version"`
	Assignment *AssignRequest      `json:"assignment"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID                   string                `json:"id"`
	TicketNumber         string                `json:"ticket_number"`
	EquipmentID          string                `json:"equipment_id"`
	ManufacturerID       string                `json:"manufacturer_id"`
	CustomerOrgID        string                `json:"customer_org_id"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Priority             domain.TicketPriority `json:"priority"`
	Status               domain.TicketStatus   `json:"status"`
	AssignedEngineerName *string               `json:"assigned_engineer_name"`
	Version              int64                 `json:"version"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	ClosedAt             *time.Time            `json:"closed_at"`
}

// StatusHistoryResponse describes one status change.
type StatusHistoryResponse struct {
	ID         string              `json:"id"`
	FromStatus domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus `json:"to_status"`
	ActorID    string              `json:"actor_id"`
	Comment    string              `json:"comment,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// AllowedTransitionsResponse lists the statuses reachable from the current one.
type AllowedTransitionsResponse struct {
	Status  domain.TicketStatus   `json:"status"`
	Allowed []domain.TicketStatus `json:"allowed"`
}
