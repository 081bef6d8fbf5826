package dto

import (
	"time"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// AssignRequest names an engineer and the tier they were chosen from.
type AssignRequest struct {
	EngineerID string                `json:"engineer_id"`
	Tier       domain.AssignmentTier `json:"tier"`
	Version    *int64                `json:"version"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	EngineerID string                `json:"engineer_id"`
	Tier       domain.AssignmentTier `json:"tier"`
	Reason     string                `json:"reason"`
	Version    *int64                `json:"version"`
}

// CompleteRequest payload. The body is optional.
type CompleteRequest struct {
	Version *int64 `json:"version"`
}

// AssignmentResponse is one ledger record.
type AssignmentResponse struct {
	ID             string                  `json:"id"`
	TicketID       string                  `json:"ticket_id"`
	EngineerID     string                  `json:"engineer_id"`
	EngineerName   string                  `json:"engineer_name"`
	OrganizationID string                  `json:"organization_id"`
	Tier           domain.AssignmentTier   `json:"tier"`
	Status         domain.AssignmentStatus `json:"status"`
	Reason         string                  `json:"reason,omitempty"`
	AssignedBy     string                  `json:"assigned_by"`
	AssignedAt     time.Time               `json:"assigned_at"`
	EndedAt        *time.Time              `json:"ended_at"`
}

// TierCandidateResponse is one organization's engineers within a tier.
type TierCandidateResponse struct {
	Tier             domain.AssignmentTier `json:"tier"`
	OrganizationID   string                `json:"organization_id"`
	OrganizationName string                `json:"organization_name"`
	Engineers        []EngineerResponse    `json:"engineers"`
}
