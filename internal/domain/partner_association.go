package domain

import "time"

// AssociationType distinguishes blanket partnerships from per-equipment overrides.
type AssociationType string

const (
	AssociationGeneral           AssociationType = "general"
	AssociationEquipmentSpecific AssociationType = "equipment_specific"
)

// Valid reports whether t is a known association type.
func (t AssociationType) Valid() bool {
	return t == AssociationGeneral || t == AssociationEquipmentSpecific
}

// DefaultRelType labels associations created without an explicit rel_type.
const DefaultRelType = "services_for"

// PartnerAssociation is a directed edge from a parent organization (usually
// a manufacturer) to the partner that services its equipment.
type PartnerAssociation struct {
	ID              string
	ParentOrgID     string
	PartnerOrgID    string
	AssociationType AssociationType
	EquipmentID     *string
	RelType         string
	CreatedAt       time.Time
}

// Matches reports whether the association is the edge identified by the triple.
func (a PartnerAssociation) Matches(parentID, partnerID string, equipmentID *string) bool {
	if a.ParentOrgID != parentID || a.PartnerOrgID != partnerID {
		return false
	}
	if equipmentID == nil {
		return a.EquipmentID == nil
	}
	return a.EquipmentID != nil && *a.EquipmentID == *equipmentID
}
