package domain

import "time"

// AssignmentTier identifies which ring of the service network an engineer came from.
type AssignmentTier string

const (
	TierOEM             AssignmentTier = "tier_1"
	TierPartner         AssignmentTier = "tier_2"
	TierServiceProvider AssignmentTier = "tier_3"
	TierHospital        AssignmentTier = "tier_4"
)

// Tiers lists every tier in resolution order.
var Tiers = []AssignmentTier{TierOEM, TierPartner, TierServiceProvider, TierHospital}

// Rank returns the 1-based position of the tier, or 0 when unknown.
func (t AssignmentTier) Rank() int {
	switch t {
	case TierOEM:
		return 1
	case TierPartner:
		return 2
	case TierServiceProvider:
		return 3
	case TierHospital:
		return 4
	}
	return 0
}

// Valid reports whether t is a known tier.
func (t AssignmentTier) Valid() bool {
	return t.Rank() > 0
}

// AssignmentStatus tracks an assignment record through the ledger.
type AssignmentStatus string

const (
	AssignmentStatusActive     AssignmentStatus = "active"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusReassigned AssignmentStatus = "reassigned"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

// Assignment is one entry in a ticket's append-only assignment ledger.
type Assignment struct {
	ID             string
	TicketID       string
	EngineerID     string
	EngineerName   string
	OrganizationID string
	Tier           AssignmentTier
	Status         AssignmentStatus
	Reason         string
	AssignedBy     string
	AssignedAt     time.Time
	EndedAt        *time.Time
}
