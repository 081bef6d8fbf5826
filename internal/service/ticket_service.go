package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/events"
	"github.com/spec-kit/equipment-service/internal/repository"
	"github.com/spec-kit/equipment-service/internal/workflow"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

const ticketNumberAttempts = 3

// TicketService creates and reads tickets. Status and assignment changes
// go through WorkflowService and AssignmentService.
type TicketService struct {
	tickets    repository.TicketRepository
	equipment  repository.EquipmentRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	EquipmentRepo repository.EquipmentRepository
	HistoryRepo   repository.TicketHistoryRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	EquipmentID string
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes ticket listing filters.
type TicketListFilter struct {
	EquipmentID    *string
	ManufacturerID *string
	CustomerOrgID  *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	SearchTerm     *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		equipment:  deps.EquipmentRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreateTicket opens a ticket in status new. Manufacturer and customer are
// copied from the equipment and never change afterwards.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	equipment, err := s.equipment.GetByID(ctx, input.EquipmentID)
	if err != nil {
		return nil, lookupError(err, "equipment", map[string]any{"equipment_id": input.EquipmentID})
	}

	ticket := &domain.Ticket{
		EquipmentID:    equipment.ID,
		ManufacturerID: equipment.ManufacturerID,
		CustomerOrgID:  equipment.CustomerOrgID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Priority:       priority,
		Status:         domain.TicketStatusNew,
	}
	for attempt := 1; ; attempt++ {
		ticket.TicketNumber = generateTicketNumber()
		err = s.tickets.Create(ctx, ticket)
		if err == nil {
			break
		}
		if !isDuplicate(err) || attempt == ticketNumberAttempts {
			return nil, mapStoreError(err)
		}
		s.logger.Warn("ticket number collision", zap.String("ticket_number", ticket.TicketNumber))
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Status:   ticket.Status,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			TicketNumber:   ticket.TicketNumber,
			EquipmentID:    ticket.EquipmentID,
			ManufacturerID: ticket.ManufacturerID,
			CustomerOrgID:  ticket.CustomerOrgID,
			Priority:       ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// GetTicketByNumber fetches a ticket by its human-facing number.
func (s *TicketService) GetTicketByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, lookupError(err, "ticket", map[string]any{"ticket_number": number})
	}
	return ticket, nil
}

// ListTickets returns tickets matching filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !workflow.Known(status) {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": priority})
		}
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		EquipmentID:    filter.EquipmentID,
		ManufacturerID: filter.ManufacturerID,
		CustomerOrgID:  filter.CustomerOrgID,
		Statuses:       filter.Statuses,
		Priorities:     filter.Priorities,
		SearchTerm:     filter.SearchTerm,
		CreatedFrom:    filter.CreatedFrom,
		CreatedTo:      filter.CreatedTo,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// StatusHistory returns the transition audit log of a ticket, oldest first.
func (s *TicketService) StatusHistory(ctx context.Context, ticketID string) ([]domain.StatusHistory, error) {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func generateTicketNumber() string {
	return "SR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate) || apperrors.HasCode(apperrors.MapError(err), apperrors.CodeConflict)
}

func requireActor(actor domain.Actor) error {
	if strings.TrimSpace(actor.ID) == "" {
		return apperrors.NewUnauthorized("actor required")
	}
	return nil
}
