package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-service/internal/api/dto"
	"github.com/spec-kit/equipment-service/internal/auth"
	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/resolver"
	"github.com/spec-kit/equipment-service/internal/service"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

// AssignmentsHandler exposes the assignment ledger of a ticket.
type AssignmentsHandler struct {
	service *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignmentService *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{service: assignmentService}
}

// Assign POST /tickets/:id/assignments.
func (h *AssignmentsHandler) Assign(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.EngineerID == "" || req.Tier == "" {
		return apperrors.NewValidationError("engineer_id and tier required", nil)
	}
	assignment, err := h.service.Assign(c.UserContext(), c.Params("id"), req.EngineerID, req.Tier, actor, versionOption(req.Version)...)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": assignmentResponse(assignment)})
}

// Reassign POST /tickets/:id/assignments/reassign.
func (h *AssignmentsHandler) Reassign(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.EngineerID == "" || req.Tier == "" || strings.TrimSpace(req.Reason) == "" {
		return apperrors.NewValidationError("engineer_id, tier, reason required", nil)
	}
	assignment, err := h.service.Reassign(c.UserContext(), c.Params("id"), req.EngineerID, req.Tier, actor, req.Reason, versionOption(req.Version)...)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": assignmentResponse(assignment)})
}

// Complete POST /tickets/:id/assignments/complete.
func (h *AssignmentsHandler) Complete(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CompleteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	assignment, err := h.service.Complete(c.UserContext(), c.Params("id"), actor, versionOption(req.Version)...)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(assignment)})
}

// AutoAssign POST /tickets/:id/assignments/auto.
func (h *AssignmentsHandler) AutoAssign(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	assignment, err := h.service.AutoAssign(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": assignmentResponse(assignment)})
}

// History GET /tickets/:id/assignments.
func (h *AssignmentsHandler) History(c *fiber.Ctx) error {
	records, err := h.service.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentResponse, 0, len(records))
	for i := range records {
		items = append(items, assignmentResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// EligibleEngineers GET /tickets/:id/eligible-engineers.
func (h *AssignmentsHandler) EligibleEngineers(c *fiber.Ctx) error {
	resolution, err := h.service.EligibleEngineers(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resolutionResponse(resolution)})
}

func versionOption(version *int64) []service.LedgerOption {
	if version == nil {
		return nil
	}
	return []service.LedgerOption{service.WithExpectedVersion(*version)}
}

func assignmentResponse(a *domain.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:             a.ID,
		TicketID:       a.TicketID,
		EngineerID:     a.EngineerID,
		EngineerName:   a.EngineerName,
		OrganizationID: a.OrganizationID,
		Tier:           a.Tier,
		Status:         a.Status,
		Reason:         a.Reason,
		AssignedBy:     a.AssignedBy,
		AssignedAt:     a.AssignedAt,
		EndedAt:        a.EndedAt,
	}
}

func resolutionResponse(resolution resolver.Resolution) []dto.TierCandidateResponse {
	items := make([]dto.TierCandidateResponse, 0, len(resolution))
	for _, candidate := range resolution {
		engineers := make([]dto.EngineerResponse, 0, len(candidate.Engineers))
		for i := range candidate.Engineers {
			engineers = append(engineers, engineerResponse(&candidate.Engineers[i]))
		}
		items = append(items, dto.TierCandidateResponse{
			Tier:             candidate.Tier,
			OrganizationID:   candidate.OrganizationID,
			OrganizationName: candidate.OrganizationName,
			Engineers:        engineers,
		})
	}
	return items
}
