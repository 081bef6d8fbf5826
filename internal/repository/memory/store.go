// Package memory provides process-local implementations of the repository
// interfaces. It backs tests and the database-less development mode.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/repository"
)

const defaultLockTimeout = 5 * time.Second

// Store holds every record in maps guarded by one RWMutex. Per-ticket
// critical sections are serialized by a separate semaphore per ticket.
type Store struct {
	mu            sync.RWMutex
	orgs          map[string]domain.Organization
	associations  map[string]domain.PartnerAssociation
	engineers     map[string]domain.Engineer
	equipment     map[string]domain.Equipment
	tickets       map[string]domain.Ticket
	ticketNumbers map[string]string
	assignments   map[string][]domain.Assignment
	history       map[string][]domain.StatusHistory

	lockMu      sync.Mutex
	locks       map[string]*ticketLock
	lockTimeout time.Duration

	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long WithTicketLock waits for a busy ticket.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		orgs:          make(map[string]domain.Organization),
		associations:  make(map[string]domain.PartnerAssociation),
		engineers:     make(map[string]domain.Engineer),
		equipment:     make(map[string]domain.Equipment),
		tickets:       make(map[string]domain.Ticket),
		ticketNumbers: make(map[string]string),
		assignments:   make(map[string][]domain.Assignment),
		history:       make(map[string][]domain.StatusHistory),
		locks:         make(map[string]*ticketLock),
		lockTimeout:   defaultLockTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Organizations returns the organization repository view.
func (s *Store) Organizations() repository.OrganizationRepository { return organizations{s} }

// Associations returns the partner association repository view.
func (s *Store) Associations() repository.PartnerAssociationRepository { return associations{s} }

// Engineers returns the engineer repository view.
func (s *Store) Engineers() repository.EngineerRepository { return engineers{s} }

// Equipment returns the equipment repository view.
func (s *Store) Equipment() repository.EquipmentRepository { return equipmentRepo{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return tickets{s} }

// Assignments returns the assignment ledger read view.
func (s *Store) Assignments() repository.AssignmentRepository { return assignments{s} }

// History returns the status history read view.
func (s *Store) History() repository.TicketHistoryRepository { return history{s} }

// Locker returns the per-ticket critical section.
func (s *Store) Locker() repository.TicketLocker { return locker{s} }

// Graph returns the snapshot reader.
func (s *Store) Graph() repository.GraphReader { return graphReader{s} }

func newID() string {
	return uuid.NewString()
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func copyStringPtr(in *string) *string {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
