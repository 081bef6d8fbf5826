package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/events"
	"github.com/spec-kit/equipment-service/internal/repository"
	"github.com/spec-kit/equipment-service/internal/resolver"
	"github.com/spec-kit/equipment-service/internal/workflow"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

const (
	autoAssignInitialInterval = 50 * time.Millisecond
	autoAssignMaxInterval     = 500 * time.Millisecond
)

// AssignmentService maintains the append-only assignment ledger.
type AssignmentService struct {
	workflow    *WorkflowService
	assignments repository.AssignmentRepository
	picker      EngineerPicker
	maxRetries  uint64
	logger      *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Workflow             *WorkflowService
	AssignmentRepo       repository.AssignmentRepository
	Picker               EngineerPicker
	AutoAssignMaxRetries int
	Logger               *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	picker := deps.Picker
	if picker == nil {
		picker = HashPicker{}
	}
	retries := deps.AutoAssignMaxRetries
	if retries < 0 {
		retries = 0
	}
	return &AssignmentService{
		workflow:    deps.Workflow,
		assignments: deps.AssignmentRepo,
		picker:      picker,
		maxRetries:  uint64(retries),
		logger:      logger,
	}
}

// LedgerOption tunes a ledger mutation.
type LedgerOption func(*ledgerOptions)

type ledgerOptions struct {
	expectedVersion *int64
}

// WithExpectedVersion fails the mutation with a conflict unless the ticket is
// still at version.
func WithExpectedVersion(version int64) LedgerOption {
	return func(o *ledgerOptions) {
		o.expectedVersion = &version
	}
}

func applyLedgerOptions(opts []LedgerOption) ledgerOptions {
	var o ledgerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Assign records the first active assignment of a ticket. A ticket still in
// status new moves to assigned in the same step. Fails with a conflict when
// an active assignment already exists.
func (s *AssignmentService) Assign(ctx context.Context, ticketID, engineerID string, tier domain.AssignmentTier, actor domain.Actor, opts ...LedgerOption) (*domain.Assignment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	p, err := s.workflow.place(ctx, ticketID, AssignmentInput{EngineerID: engineerID, Tier: tier})
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, p, actor, applyLedgerOptions(opts))
}

func (s *AssignmentService) assign(ctx context.Context, p placement, actor domain.Actor, o ledgerOptions) (*domain.Assignment, error) {
	var (
		record  *domain.Assignment
		updated domain.Ticket
		from    domain.TicketStatus
	)
	err := s.workflow.locker.WithTicketLock(ctx, p.ticket.ID, func(ctx context.Context, tx repository.TicketTx) error {
		ticket := tx.Ticket()
		if err := checkVersion(ticket, o.expectedVersion); err != nil {
			return err
		}
		from = ticket.Status
		if workflow.IsTerminal(from) {
			return apperrors.NewInvalidTransition(string(from), string(domain.TicketStatusAssigned))
		}
		active, err := tx.ActiveAssignment(ctx)
		if err != nil {
			return err
		}
		if active != nil {
			return apperrors.NewConflict("ticket already has an active assignment, use reassign",
				map[string]any{"ticket_id": ticket.ID, "assignment_id": active.ID})
		}

		record = newAssignmentRecord(p, actor, "")
		if err := tx.InsertAssignment(ctx, record); err != nil {
			return err
		}
		ticket.AssignedEngineerName = stringPtr(record.EngineerName)
		if from == domain.TicketStatusNew {
			ticket.Status = domain.TicketStatusAssigned
		}
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}
		if ticket.Status != from {
			if err := tx.AppendHistory(ctx, &domain.StatusHistory{
				TicketID:   ticket.ID,
				FromStatus: from,
				ToStatus:   ticket.Status,
				ActorID:    actor.ID,
				Comment:    "assigned to " + record.EngineerName,
			}); err != nil {
				return err
			}
		}
		updated = *ticket
		return nil
	})
	if err != nil {
		return nil, lockError(err, p.ticket.ID)
	}

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", updated.ID),
		zap.String("engineer_id", record.EngineerID),
		zap.String("tier", string(record.Tier)),
		zap.String("actor_id", actor.ID))

	summary := events.NewAssignmentSummary(record)
	if updated.Status != from {
		s.workflow.publish(ctx, actor, &updated, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
			OldStatus:  from,
			NewStatus:  updated.Status,
			Assignment: summary,
		})
	}
	s.workflow.publish(ctx, actor, &updated, events.EventTicketAssigned, events.TicketAssignedPayload{Assignment: summary})
	return record, nil
}

// Reassign supersedes the active assignment. The old record becomes
// reassigned with reason attached and a new active record is inserted, both
// in one step. Unless WithExpectedVersion is given, the ticket version read
// while validating the engineer must still hold when the ledger is written,
// so of two racing reassignments only one succeeds.
func (s *AssignmentService) Reassign(ctx context.Context, ticketID, engineerID string, tier domain.AssignmentTier, actor domain.Actor, reason string, opts ...LedgerOption) (*domain.Assignment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason is required for reassignment", map[string]any{"ticket_id": ticketID})
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	p, err := s.workflow.place(ctx, ticketID, AssignmentInput{EngineerID: engineerID, Tier: tier})
	if err != nil {
		return nil, err
	}
	o := applyLedgerOptions(opts)
	if o.expectedVersion == nil {
		observed := p.ticket.Version
		o.expectedVersion = &observed
	}

	var (
		record   *domain.Assignment
		previous *domain.Assignment
		updated  domain.Ticket
	)
	err = s.workflow.locker.WithTicketLock(ctx, ticketID, func(ctx context.Context, tx repository.TicketTx) error {
		ticket := tx.Ticket()
		if err := checkVersion(ticket, o.expectedVersion); err != nil {
			return err
		}
		active, err := tx.ActiveAssignment(ctx)
		if err != nil {
			return err
		}
		if active == nil {
			return apperrors.NewNotFound("active assignment", map[string]any{"ticket_id": ticketID})
		}
		if active.EngineerID == p.engineer.ID {
			return apperrors.NewValidationError("engineer already holds the active assignment",
				map[string]any{"engineer_id": p.engineer.ID})
		}
		now := s.workflow.now()
		if err := tx.CloseAssignment(ctx, active.ID, domain.AssignmentStatusReassigned, reason, now); err != nil {
			return err
		}
		previous = closedCopy(active, domain.AssignmentStatusReassigned, now)
		previous.Reason = reason

		record = newAssignmentRecord(p, actor, reason)
		if err := tx.InsertAssignment(ctx, record); err != nil {
			return err
		}
		ticket.AssignedEngineerName = stringPtr(record.EngineerName)
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}
		updated = *ticket
		return nil
	})
	if err != nil {
		return nil, lockError(err, ticketID)
	}

	s.logger.Info("ticket reassigned",
		zap.String("ticket_id", ticketID),
		zap.String("from_engineer_id", previous.EngineerID),
		zap.String("to_engineer_id", record.EngineerID),
		zap.String("tier", string(record.Tier)))

	s.workflow.publish(ctx, actor, &updated, events.EventTicketReassigned, events.TicketAssignedPayload{
		Assignment: events.NewAssignmentSummary(record),
		Previous:   events.NewAssignmentSummary(previous),
	})
	return record, nil
}

// Complete marks the active assignment completed without changing the
// ticket status.
func (s *AssignmentService) Complete(ctx context.Context, ticketID string, actor domain.Actor, opts ...LedgerOption) (*domain.Assignment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	o := applyLedgerOptions(opts)
	var (
		completed *domain.Assignment
		updated   domain.Ticket
	)
	err := s.workflow.locker.WithTicketLock(ctx, ticketID, func(ctx context.Context, tx repository.TicketTx) error {
		ticket := tx.Ticket()
		if err := checkVersion(ticket, o.expectedVersion); err != nil {
			return err
		}
		active, err := tx.ActiveAssignment(ctx)
		if err != nil {
			return err
		}
		if active == nil {
			return apperrors.NewNotFound("active assignment", map[string]any{"ticket_id": ticketID})
		}
		now := s.workflow.now()
		if err := tx.CloseAssignment(ctx, active.ID, domain.AssignmentStatusCompleted, "", now); err != nil {
			return err
		}
		completed = closedCopy(active, domain.AssignmentStatusCompleted, now)
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}
		updated = *ticket
		return nil
	})
	if err != nil {
		return nil, lockError(err, ticketID)
	}
	s.workflow.publish(ctx, actor, &updated, events.EventAssignmentCompleted, events.TicketAssignedPayload{
		Assignment: events.NewAssignmentSummary(completed),
	})
	return completed, nil
}

// History returns every assignment of a ticket, most recent first.
func (s *AssignmentService) History(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	if _, err := s.workflow.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, lookupError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	records, err := s.assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// EligibleEngineers returns the tiered candidate pools for a ticket.
func (s *AssignmentService) EligibleEngineers(ctx context.Context, ticketID string) (resolver.Resolution, error) {
	_, resolution, err := s.workflow.resolveTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return resolution, nil
}

// AutoAssign lets the configured picker choose an engineer from the earliest
// non-empty tier and assigns it. Lost races are retried with backoff after
// re-resolving; an existing active assignment is not retried.
func (s *AssignmentService) AutoAssign(ctx context.Context, ticketID string, actor domain.Actor) (*domain.Assignment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var result *domain.Assignment
	operation := func() error {
		active, err := s.assignments.GetActive(ctx, ticketID)
		switch {
		case err == nil:
			return backoff.Permanent(apperrors.NewConflict("ticket already has an active assignment",
				map[string]any{"ticket_id": ticketID, "assignment_id": active.ID}))
		case !errors.Is(err, pgx.ErrNoRows):
			return backoff.Permanent(apperrors.MapError(err))
		}
		ticket, resolution, err := s.workflow.resolveTicket(ctx, ticketID)
		if err != nil {
			return backoff.Permanent(err)
		}
		tier, ok := resolution.FirstNonEmpty()
		if !ok {
			return backoff.Permanent(apperrors.NewNoEligibleEngineer(ticketID))
		}
		engineer, err := s.picker.Pick(ctx, ticket, resolution.Pool(tier))
		if err != nil {
			return backoff.Permanent(apperrors.MapError(err))
		}
		p, err := locate(ticket, resolution, engineer.ID, tier)
		if err != nil {
			return backoff.Permanent(err)
		}
		assignment, err := s.assign(ctx, p, actor, ledgerOptions{expectedVersion: &ticket.Version})
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeConflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = assignment
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = autoAssignInitialInterval
	bo.MaxInterval = autoAssignMaxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, s.maxRetries), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		s.logger.Warn("auto-assign lost a race, retrying",
			zap.String("ticket_id", ticketID),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
