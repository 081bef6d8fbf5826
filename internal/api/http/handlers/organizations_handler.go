package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-service/internal/api/dto"
	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/repository"
	"github.com/spec-kit/equipment-service/internal/resolver"
	"github.com/spec-kit/equipment-service/internal/service"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

// OrganizationsHandler manages the organization graph: organizations,
// partner associations and engineers.
type OrganizationsHandler struct {
	service *service.GraphService
}

// NewOrganizationsHandler constructs handler.
func NewOrganizationsHandler(graphService *service.GraphService) *OrganizationsHandler {
	return &OrganizationsHandler{service: graphService}
}

// CreateOrganization POST /organizations.
func (h *OrganizationsHandler) CreateOrganization(c *fiber.Ctx) error {
	var req dto.CreateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	org, err := h.service.CreateOrganization(c.UserContext(), service.OrganizationInput{
		Name:            req.Name,
		Type:            req.Type,
		Specializations: req.Specializations,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": organizationResponse(org)})
}

// ListOrganizations GET /organizations.
func (h *OrganizationsHandler) ListOrganizations(c *fiber.Ctx) error {
	filter := repository.OrganizationFilter{}
	if v := c.Query("org_type"); v != "" {
		orgType := domain.OrgType(v)
		filter.Type = &orgType
	}
	if v := c.Query("status"); v != "" {
		status := domain.OrgStatus(v)
		filter.Status = &status
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	orgs, err := h.service.ListOrganizations(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		items = append(items, organizationResponse(&orgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetOrganization GET /organizations/:id.
func (h *OrganizationsHandler) GetOrganization(c *fiber.Ctx) error {
	org, err := h.service.GetOrganization(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": organizationResponse(org)})
}

// DeactivateOrganization POST /organizations/:id/deactivate.
func (h *OrganizationsHandler) DeactivateOrganization(c *fiber.Ctx) error {
	org, err := h.service.DeactivateOrganization(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": organizationResponse(org)})
}

// GetPartners GET /organizations/:id/partners.
func (h *OrganizationsHandler) GetPartners(c *fiber.Ctx) error {
	filter := resolver.PartnerFilter{}
	if v := c.Query("association_type"); v != "" {
		assocType := domain.AssociationType(v)
		filter.AssociationType = &assocType
	}
	if v := c.Query("equipment_id"); v != "" {
		filter.EquipmentID = &v
	}
	partners, err := h.service.GetPartners(c.UserContext(), c.Params("id"), filter)
	if err != nil {
		return err
	}
	items := make([]dto.PartnerResponse, 0, len(partners))
	for i := range partners {
		items = append(items, partnerResponse(&partners[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpsertPartner PUT /organizations/:id/partners.
func (h *OrganizationsHandler) UpsertPartner(c *fiber.Ctx) error {
	var req dto.UpsertPartnerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PartnerOrgID == "" {
		return apperrors.NewValidationError("partner_org_id required", nil)
	}
	assoc, err := h.service.UpsertAssociation(c.UserContext(), service.AssociationInput{
		ParentOrgID:     c.Params("id"),
		PartnerOrgID:    req.PartnerOrgID,
		AssociationType: req.AssociationType,
		EquipmentID:     req.EquipmentID,
		RelType:         req.RelType,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": partnerResponse(assoc)})
}

// RemovePartner DELETE /organizations/:id/partners/:partnerId.
func (h *OrganizationsHandler) RemovePartner(c *fiber.Ctx) error {
	var equipmentID *string
	if v := c.Query("equipment_id"); v != "" {
		equipmentID = &v
	}
	if err := h.service.RemoveAssociation(c.UserContext(), c.Params("id"), c.Params("partnerId"), equipmentID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateEngineer POST /organizations/:id/engineers.
func (h *OrganizationsHandler) CreateEngineer(c *fiber.Ctx) error {
	var req dto.CreateEngineerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	engineer, err := h.service.CreateEngineer(c.UserContext(), service.EngineerInput{
		OrganizationID:  c.Params("id"),
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Specializations: req.Specializations,
		Level:           req.Level,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": engineerResponse(engineer)})
}

// ListEngineers GET /organizations/:id/engineers.
func (h *OrganizationsHandler) ListEngineers(c *fiber.Ctx) error {
	engineers, err := h.service.GetEngineers(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.EngineerResponse, 0, len(engineers))
	for i := range engineers {
		items = append(items, engineerResponse(&engineers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeactivateEngineer POST /engineers/:id/deactivate.
func (h *OrganizationsHandler) DeactivateEngineer(c *fiber.Ctx) error {
	engineer, err := h.service.DeactivateEngineer(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": engineerResponse(engineer)})
}

func organizationResponse(org *domain.Organization) dto.OrganizationResponse {
	return dto.OrganizationResponse{
		ID:              org.ID,
		Name:            org.Name,
		Type:            org.Type,
		Status:          org.Status,
		Specializations: org.Specializations,
		CreatedAt:       org.CreatedAt,
		UpdatedAt:       org.UpdatedAt,
	}
}

func partnerResponse(assoc *domain.PartnerAssociation) dto.PartnerResponse {
	return dto.PartnerResponse{
		ID:              assoc.ID,
		ParentOrgID:     assoc.ParentOrgID,
		PartnerOrgID:    assoc.PartnerOrgID,
		AssociationType: assoc.AssociationType,
		EquipmentID:     assoc.EquipmentID,
		RelType:         assoc.RelType,
		CreatedAt:       assoc.CreatedAt,
	}
}

func engineerResponse(engineer *domain.Engineer) dto.EngineerResponse {
	return dto.EngineerResponse{
		ID:              engineer.ID,
		Name:            engineer.Name,
		Email:           engineer.Email,
		Phone:           engineer.Phone,
		OrganizationID:  engineer.OrganizationID,
		Specializations: engineer.Specializations,
		Level:           engineer.Level,
		Status:          engineer.Status,
	}
}
