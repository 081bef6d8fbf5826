package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-service/internal/api/dto"
	"github.com/spec-kit/equipment-service/internal/auth"
	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/service"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints and status transitions.
type TicketsHandler struct {
	tickets  *service.TicketService
	workflow *service.WorkflowService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, workflowService *service.WorkflowService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, workflow: workflowService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.EquipmentID == "" || strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("equipment_id and title required", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		EquipmentID: req.EquipmentID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Transition POST /tickets/:id/transitions.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	opts := service.TransitionOptions{ExpectedVersion: req.Version, Comment: req.Comment}
	if req.Assignment != nil {
		opts.Assignment = &service.AssignmentInput{EngineerID: req.Assignment.EngineerID, Tier: req.Assignment.Tier}
	}
	ticket, err := h.workflow.Transition(c.UserContext(), c.Params("id"), req.Status, actor, opts)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AllowedTransitions GET /tickets/:id/transitions.
func (h *TicketsHandler) AllowedTransitions(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	allowed, err := h.workflow.AllowedTransitions(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AllowedTransitionsResponse{Status: ticket.Status, Allowed: allowed}})
}

// StatusHistory GET /tickets/:id/status-history.
func (h *TicketsHandler) StatusHistory(c *fiber.Ctx) error {
	entries, err := h.tickets.StatusHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.StatusHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.StatusHistoryResponse{
			ID:         entry.ID,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			ActorID:    entry.ActorID,
			Comment:    entry.Comment,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if v := c.Query("equipment_id"); v != "" {
		filter.EquipmentID = &v
	}
	if v := c.Query("manufacturer_id"); v != "" {
		filter.ManufacturerID = &v
	}
	if v := c.Query("customer_org_id"); v != "" {
		filter.CustomerOrgID = &v
	}
	if v := c.Query("q"); v != "" {
		filter.SearchTerm = &v
	}
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                   ticket.ID,
		TicketNumber:         ticket.TicketNumber,
		EquipmentID:          ticket.EquipmentID,
		ManufacturerID:       ticket.ManufacturerID,
		CustomerOrgID:        ticket.CustomerOrgID,
		Title:                ticket.Title,
		Description:          ticket.Description,
		Priority:             ticket.Priority,
		Status:               ticket.Status,
		AssignedEngineerName: ticket.AssignedEngineerName,
		Version:              ticket.Version,
		CreatedAt:            ticket.CreatedAt,
		UpdatedAt:            ticket.UpdatedAt,
		ClosedAt:             ticket.ClosedAt,
	}
}
