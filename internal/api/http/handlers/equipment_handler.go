package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-service/internal/api/dto"
	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/service"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

// EquipmentHandler registers and looks up installed equipment.
type EquipmentHandler struct {
	service *service.GraphService
}

// NewEquipmentHandler constructs handler.
func NewEquipmentHandler(graphService *service.GraphService) *EquipmentHandler {
	return &EquipmentHandler{service: graphService}
}

// CreateEquipment POST /equipment.
func (h *EquipmentHandler) CreateEquipment(c *fiber.Ctx) error {
	var req dto.CreateEquipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	equipment, err := h.service.CreateEquipment(c.UserContext(), service.EquipmentInput{
		SerialNumber:   req.SerialNumber,
		Name:           req.Name,
		Category:       req.Category,
		ManufacturerID: req.ManufacturerID,
		CustomerOrgID:  req.CustomerOrgID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

// GetEquipment GET /equipment/:id.
func (h *EquipmentHandler) GetEquipment(c *fiber.Ctx) error {
	equipment, err := h.service.GetEquipment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(equipment)})
}

func equipmentResponse(e *domain.Equipment) dto.EquipmentResponse {
	return dto.EquipmentResponse{
		ID:             e.ID,
		SerialNumber:   e.SerialNumber,
		Name:           e.Name,
		Category:       e.Category,
		ManufacturerID: e.ManufacturerID,
		CustomerOrgID:  e.CustomerOrgID,
		CreatedAt:      e.CreatedAt,
	}
}
