package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/repository"
)

type tickets struct{ s *Store }

func (r tickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.ticketNumbers[ticket.TicketNumber]; taken {
		return repository.ErrDuplicate
	}
	if ticket.ID == "" {
		ticket.ID = newID()
	}
	now := r.s.now()
	ticket.Version = 1
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	r.s.ticketNumbers[ticket.TicketNumber] = ticket.ID
	return nil
}

func (r tickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r tickets) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	id, ok := r.s.ticketNumbers[number]
	r.s.mu.RUnlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func (r tickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if !matchesTicket(ticket, filter) {
			continue
		}
		result = append(result, cloneTicket(ticket))
	}
	r.s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Limit, filter.Offset, 20), nil
}

func matchesTicket(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.EquipmentID != nil && ticket.EquipmentID != *filter.EquipmentID {
		return false
	}
	if filter.ManufacturerID != nil && ticket.ManufacturerID != *filter.ManufacturerID {
		return false
	}
	if filter.CustomerOrgID != nil && ticket.CustomerOrgID != *filter.CustomerOrgID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.TrimSpace(*filter.SearchTerm)
		if term != "" && !containsFold(ticket.Title, term) && !containsFold(ticket.TicketNumber, term) {
			return false
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range list {
		if p == priority {
			return true
		}
	}
	return false
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssignedEngineerName = copyStringPtr(t.AssignedEngineerName)
	t.ClosedAt = copyTimePtr(t.ClosedAt)
	return t
}

func cloneAssignment(a domain.Assignment) domain.Assignment {
	a.EndedAt = copyTimePtr(a.EndedAt)
	return a
}

type assignments struct{ s *Store }

func (r assignments) ListByTicket(_ context.Context, ticketID string) ([]domain.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ledger := r.s.assignments[ticketID]
	result := make([]domain.Assignment, 0, len(ledger))
	for i := len(ledger) - 1; i >= 0; i-- {
		result = append(result, cloneAssignment(ledger[i]))
	}
	return result, nil
}

func (r assignments) GetActive(_ context.Context, ticketID string) (*domain.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.assignments[ticketID] {
		if a.Status == domain.AssignmentStatusActive {
			out := cloneAssignment(a)
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r assignments) CountActiveByEngineer(_ context.Context, engineerIDs []string) (map[string]int, error) {
	wanted := make(map[string]struct{}, len(engineerIDs))
	for _, id := range engineerIDs {
		wanted[id] = struct{}{}
	}
	counts := make(map[string]int, len(engineerIDs))
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, ledger := range r.s.assignments {
		for _, a := range ledger {
			if a.Status != domain.AssignmentStatusActive {
				continue
			}
			if _, ok := wanted[a.EngineerID]; ok {
				counts[a.EngineerID]++
			}
		}
	}
	return counts, nil
}

type history struct{ s *Store }

func (r history) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.StatusHistory{}, r.s.history[ticketID]...), nil
}

type locker struct{ s *Store }

func (l locker) WithTicketLock(ctx context.Context, ticketID string, fn func(ctx context.Context, tx repository.TicketTx) error) error {
	l.s.mu.RLock()
	_, exists := l.s.tickets[ticketID]
	l.s.mu.RUnlock()
	if !exists {
		return pgx.ErrNoRows
	}

	release, err := l.s.acquire(ctx, ticketID)
	if err != nil {
		return err
	}
	defer release()

	l.s.mu.RLock()
	ticket := cloneTicket(l.s.tickets[ticketID])
	ledger := make([]domain.Assignment, 0, len(l.s.assignments[ticketID]))
	for _, a := range l.s.assignments[ticketID] {
		ledger = append(ledger, cloneAssignment(a))
	}
	l.s.mu.RUnlock()

	handed := cloneTicket(ticket)
	tx := &memTx{s: l.s, ticket: &handed, version: ticket.Version, staged: ticket, ledger: ledger}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.s.commit(tx)
	return nil
}

// ticketLock is a per-ticket semaphore. refs counts the holder and waiters so
// the entry can be dropped once nobody references it.
type ticketLock struct {
	sem  chan struct{}
	refs int
}

func (s *Store) acquire(ctx context.Context, ticketID string) (func(), error) {
	s.lockMu.Lock()
	lock, ok := s.locks[ticketID]
	if !ok {
		lock = &ticketLock{sem: make(chan struct{}, 1)}
		s.locks[ticketID] = lock
	}
	lock.refs++
	s.lockMu.Unlock()

	waitCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.lockTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	select {
	case lock.sem <- struct{}{}:
		return func() {
			<-lock.sem
			s.unref(ticketID, lock)
		}, nil
	case <-waitCtx.Done():
		s.unref(ticketID, lock)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, repository.ErrLockTimeout
	}
}

func (s *Store) unref(ticketID string, lock *ticketLock) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock.refs--
	if lock.refs == 0 && s.locks[ticketID] == lock {
		delete(s.locks, ticketID)
	}
}

func (s *Store) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[tx.staged.ID] = cloneTicket(tx.staged)
	s.assignments[tx.staged.ID] = tx.ledger
	s.history[tx.staged.ID] = append(s.history[tx.staged.ID], tx.history...)
}

// memTx stages writes against private copies; commit publishes them at once.
type memTx struct {
	s       *Store
	ticket  *domain.Ticket
	version int64
	staged  domain.Ticket
	ledger  []domain.Assignment
	history []domain.StatusHistory
}

func (t *memTx) Ticket() *domain.Ticket {
	return t.ticket
}

func (t *memTx) UpdateTicket(_ context.Context, ticket *domain.Ticket) error {
	if ticket.ID != t.staged.ID || ticket.Version != t.version {
		return repository.ErrStaleVersion
	}
	ticket.Version++
	ticket.UpdatedAt = t.s.now()
	t.version = ticket.Version
	t.staged = cloneTicket(*ticket)
	return nil
}

func (t *memTx) ActiveAssignment(_ context.Context) (*domain.Assignment, error) {
	for _, a := range t.ledger {
		if a.Status == domain.AssignmentStatusActive {
			out := cloneAssignment(a)
			return &out, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertAssignment(_ context.Context, assignment *domain.Assignment) error {
	if assignment.Status == domain.AssignmentStatusActive {
		for _, a := range t.ledger {
			if a.Status == domain.AssignmentStatusActive {
				return repository.ErrDuplicate
			}
		}
	}
	assignment.ID = newID()
	assignment.TicketID = t.staged.ID
	assignment.AssignedAt = t.s.now()
	t.ledger = append(t.ledger, cloneAssignment(*assignment))
	return nil
}

func (t *memTx) CloseAssignment(_ context.Context, id string, status domain.AssignmentStatus, reason string, at time.Time) error {
	for i := range t.ledger {
		if t.ledger[i].ID != id {
			continue
		}
		if t.ledger[i].Status != domain.AssignmentStatusActive {
			return repository.ErrNotActive
		}
		t.ledger[i].Status = status
		if reason != "" {
			t.ledger[i].Reason = reason
		}
		ended := at
		t.ledger[i].EndedAt = &ended
		return nil
	}
	return repository.ErrNotActive
}

func (t *memTx) AppendHistory(_ context.Context, entry *domain.StatusHistory) error {
	entry.ID = newID()
	entry.TicketID = t.staged.ID
	entry.CreatedAt = t.s.now()
	t.history = append(t.history, *entry)
	return nil
}
