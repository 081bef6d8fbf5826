package dto

import (
	"time"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// CreateOrganizationRequest payload.
type CreateOrganizationRequest struct {
	Name            string         `json:"name"`
	Type            domain.OrgType `json:"org_type"`
	Specializations []string       `json:"specializations"`
}

// OrganizationResponse represents an organization.
type OrganizationResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Type            domain.OrgType   `json:"org_type"`
	Status          domain.OrgStatus `json:"status"`
	Specializations []string         `json:"specializations"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// UpsertPartnerRequest creates or returns a partner association.
type UpsertPartnerRequest struct {
	PartnerOrgID    string                 `json:"partner_org_id"`
	AssociationType domain.AssociationType `json:"association_type"`
	EquipmentID     *string                `json:"equipment_id"`
	RelType         string                 `json:"rel_type"`
}

// PartnerResponse describes one association edge.
type PartnerResponse struct {
	ID              string                 `json:"id"`
	ParentOrgID     string                 `json:"parent_org_id"`
	PartnerOrgID    string                 `json:"partner_org_id"`
	AssociationType domain.AssociationType `json:"association_type"`
	EquipmentID     *string                `json:"equipment_id"`
	RelType         string                 `json:"rel_type"`
	CreatedAt       time.Time              `json:"created_at"`
}

// CreateEngineerRequest payload.
type CreateEngineerRequest struct {
	Name            string               `json:"name"`
	Email           string               `json:"email"`
	Phone           string               `json:"phone"`
	Specializations []string             `json:"specializations"`
	Level           domain.EngineerLevel `json:"engineer_level"`
}

// EngineerResponse represents an engineer.
type EngineerResponse struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Email           string                `json:"email,omitempty"`
	Phone           string                `json:"phone,omitempty"`
	OrganizationID  string                `json:"organization_id"`
	Specializations []string              `json:"specializations"`
	Level           domain.EngineerLevel  `json:"engineer_level"`
	Status          domain.EngineerStatus `json:"status"`
}

// CreateEquipmentRequest payload.
type CreateEquipmentRequest struct {
	SerialNumber   string `json:"serial_number"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	ManufacturerID string `json:"manufacturer_id"`
	CustomerOrgID  string `json:"customer_org_id"`
}

// EquipmentResponse represents installed equipment.
type EquipmentResponse struct {
	ID             string    `json:"id"`
	SerialNumber   string    `json:"serial_number"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	ManufacturerID string    `json:"manufacturer_id"`
	CustomerOrgID  string    `json:"customer_org_id"`
	CreatedAt      time.Time `json:"created_at"`
}
