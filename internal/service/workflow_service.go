package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/events"
	"github.com/spec-kit/equipment-service/internal/repository"
	"github.com/spec-kit/equipment-service/internal/resolver"
	"github.com/spec-kit/equipment-service/internal/workflow"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

// WorkflowService applies status transitions. Every mutation runs inside the
// ticket's critical section so the status and the assignment ledger change
// together or not at all.
type WorkflowService struct {
	tickets    repository.TicketRepository
	equipment  repository.EquipmentRepository
	engineers  repository.EngineerRepository
	locker     repository.TicketLocker
	graph      *GraphService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	TicketRepo    repository.TicketRepository
	EquipmentRepo repository.EquipmentRepository
	EngineerRepo  repository.EngineerRepository
	Locker        repository.TicketLocker
	Graph         *GraphService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         func() time.Time
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &WorkflowService{
		tickets:    deps.TicketRepo,
		equipment:  deps.EquipmentRepo,
		engineers:  deps.EngineerRepo,
		locker:     deps.Locker,
		graph:      deps.Graph,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// AssignmentInput selects one engineer from one tier.
type AssignmentInput struct {
	EngineerID string
	Tier       domain.AssignmentTier
}

// TransitionOptions carries optional inputs of a transition.
type TransitionOptions struct {
	// ExpectedVersion rejects the transition with a conflict when the ticket
	// changed since the caller read it.
	ExpectedVersion *int64
	Comment         string
	// Assignment is recorded atomically with a transition into assigned.
	Assignment *AssignmentInput
}

// placement is an engineer validated against the ticket's resolution.
type placement struct {
	ticket    *domain.Ticket
	engineer  domain.Engineer
	candidate resolver.TierCandidate
}

// Transition moves a ticket to target. Disallowed targets fail with an
// invalid-transition error and leave the ticket untouched.
func (s *WorkflowService) Transition(ctx context.Context, ticketID string, target domain.TicketStatus, actor domain.Actor, opts TransitionOptions) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !workflow.Known(target) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": target})
	}
	var pending *placement
	if opts.Assignment != nil {
		if target != domain.TicketStatusAssigned {
			return nil, apperrors.NewValidationError("assignment may only accompany a transition to assigned", map[string]any{"status": target})
		}
		p, err := s.place(ctx, ticketID, *opts.Assignment)
		if err != nil {
			return nil, err
		}
		pending = &p
	}

	var (
		updated  domain.Ticket
		from     domain.TicketStatus
		inserted *domain.Assignment
		closed   *domain.Assignment
	)
	err := s.locker.WithTicketLock(ctx, ticketID, func(ctx context.Context, tx repository.TicketTx) error {
		ticket := tx.Ticket()
		if err := checkVersion(ticket, opts.ExpectedVersion); err != nil {
			return err
		}
		from = ticket.Status
		if !workflow.CanTransition(from, target) {
			return apperrors.NewInvalidTransition(string(from), string(target))
		}
		now := s.now()

		active, err := tx.ActiveAssignment(ctx)
		if err != nil {
			return err
		}
		switch workflow.EffectOf(target) {
		case workflow.EffectRequireAssignment:
			if active != nil && pending != nil {
				return apperrors.NewConflict("ticket already has an active assignment", map[string]any{"assignment_id": active.ID})
			}
			if active == nil {
				if pending == nil {
					return apperrors.NewMissingAssignment(ticket.ID)
				}
				record := newAssignmentRecord(*pending, actor, "")
				if err := tx.InsertAssignment(ctx, record); err != nil {
					return err
				}
				inserted, active = record, record
			}
			ticket.AssignedEngineerName = stringPtr(active.EngineerName)
		case workflow.EffectCompleteAssignment:
			if active != nil {
				if err := tx.CloseAssignment(ctx, active.ID, domain.AssignmentStatusCompleted, "", now); err != nil {
					return err
				}
				closed = closedCopy(active, domain.AssignmentStatusCompleted, now)
			}
		case workflow.EffectCancelAssignment:
			if active != nil {
				if err := tx.CloseAssignment(ctx, active.ID, domain.AssignmentStatusCancelled, "", now); err != nil {
					return err
				}
				closed = closedCopy(active, domain.AssignmentStatusCancelled, now)
			}
		case workflow.EffectNone:
		}

		ticket.Status = target
		if target == domain.TicketStatusClosed {
			ticket.ClosedAt = &now
		}
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, &domain.StatusHistory{
			TicketID:   ticket.ID,
			FromStatus: from,
			ToStatus:   target,
			ActorID:    actor.ID,
			Comment:    strings.TrimSpace(opts.Comment),
		}); err != nil {
			return err
		}
		updated = *ticket
		return nil
	})
	if err != nil {
		return nil, lockError(err, ticketID)
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor_id", actor.ID))

	changed := inserted
	if changed == nil {
		changed = closed
	}
	s.publish(ctx, actor, &updated, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus:  from,
		NewStatus:  target,
		Comment:    strings.TrimSpace(opts.Comment),
		Assignment: events.NewAssignmentSummary(changed),
	})
	if inserted != nil {
		s.publish(ctx, actor, &updated, events.EventTicketAssigned, events.TicketAssignedPayload{
			Assignment: events.NewAssignmentSummary(inserted),
		})
	}
	if closed != nil && closed.Status == domain.AssignmentStatusCompleted {
		s.publish(ctx, actor, &updated, events.EventAssignmentCompleted, events.TicketAssignedPayload{
			Assignment: events.NewAssignmentSummary(closed),
		})
	}
	return &updated, nil
}

// AllowedTransitions returns the statuses a ticket may move to next.
func (s *WorkflowService) AllowedTransitions(ctx context.Context, ticketID string) ([]domain.TicketStatus, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return workflow.NextStatuses(ticket.Status), nil
}

// resolveTicket runs the tier resolver for a ticket against a fresh graph snapshot.
func (s *WorkflowService) resolveTicket(ctx context.Context, ticketID string) (*domain.Ticket, resolver.Resolution, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, lookupError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	equipment, err := s.equipment.GetByID(ctx, ticket.EquipmentID)
	if err != nil {
		return nil, nil, lookupError(err, "equipment", map[string]any{"equipment_id": ticket.EquipmentID})
	}
	graph, err := s.graph.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ticket, resolver.Resolve(*ticket, *equipment, graph), nil
}

// place validates that engineer belongs to the tier's pool for the ticket.
func (s *WorkflowService) place(ctx context.Context, ticketID string, input AssignmentInput) (placement, error) {
	engineerID := strings.TrimSpace(input.EngineerID)
	if engineerID == "" {
		return placement{}, apperrors.NewValidationError("engineer_id is required", nil)
	}
	if !input.Tier.Valid() {
		return placement{}, apperrors.NewValidationError("invalid assignment tier", map[string]any{"tier": input.Tier})
	}
	engineer, err := s.engineers.GetByID(ctx, engineerID)
	if err != nil {
		return placement{}, lookupError(err, "engineer", map[string]any{"engineer_id": engineerID})
	}
	if !engineer.Active() {
		return placement{}, apperrors.NewValidationError("engineer is inactive", map[string]any{"engineer_id": engineerID})
	}
	ticket, resolution, err := s.resolveTicket(ctx, ticketID)
	if err != nil {
		return placement{}, err
	}
	return locate(ticket, resolution, engineerID, input.Tier)
}

func locate(ticket *domain.Ticket, resolution resolver.Resolution, engineerID string, tier domain.AssignmentTier) (placement, error) {
	candidate, engineer, ok := resolution.Locate(engineerID, tier)
	if !ok {
		return placement{}, apperrors.NewValidationError("engineer is not eligible for this ticket at the requested tier",
			map[string]any{"engineer_id": engineerID, "tier": tier, "ticket_id": ticket.ID})
	}
	return placement{ticket: ticket, engineer: engineer, candidate: candidate}, nil
}

func (s *WorkflowService) publish(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, eventType events.EventType, payload interface{}) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      eventType,
		TicketID:  ticket.ID,
		Status:    ticket.Status,
		Actor:     eventActor(actor),
		Timestamp: ticket.UpdatedAt,
		Payload:   payload,
	})
}

func newAssignmentRecord(p placement, actor domain.Actor, reason string) *domain.Assignment {
	return &domain.Assignment{
		TicketID:       p.ticket.ID,
		EngineerID:     p.engineer.ID,
		EngineerName:   p.engineer.Name,
		OrganizationID: p.candidate.OrganizationID,
		Tier:           p.candidate.Tier,
		Status:         domain.AssignmentStatusActive,
		Reason:         reason,
		AssignedBy:     actor.ID,
	}
}

func closedCopy(a *domain.Assignment, status domain.AssignmentStatus, at time.Time) *domain.Assignment {
	out := *a
	out.Status = status
	out.EndedAt = &at
	return &out
}

func checkVersion(ticket *domain.Ticket, expected *int64) error {
	if expected == nil || *expected == ticket.Version {
		return nil
	}
	return apperrors.NewConflict("ticket was modified concurrently", map[string]any{
		"ticket_id":        ticket.ID,
		"expected_version": *expected,
		"current_version":  ticket.Version,
	})
}

// lockError maps failures surfaced by TicketLocker.
func lockError(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewUnavailable("ticket update interrupted", fmt.Errorf("ticket %s: %w", ticketID, err))
	}
	return mapStoreError(err)
}

func stringPtr(v string) *string {
	return &v
}
