package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/repository"
)

func newTicket(t *testing.T, s *Store) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		TicketNumber: "SR-" + newID()[:8],
		Status:       domain.TicketStatusNew,
		Priority:     domain.TicketPriorityMedium,
	}
	require.NoError(t, s.Tickets().Create(context.Background(), ticket))
	return ticket
}

func TestWithTicketLock_CommitsOnSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	ticket := newTicket(t, s)

	err := s.Locker().WithTicketLock(ctx, ticket.ID, func(ctx context.Context, tx repository.TicketTx) error {
		locked := tx.Ticket()
		locked.Status = domain.TicketStatusAssigned
		if err := tx.InsertAssignment(ctx, &domain.Assignment{EngineerID: "e-1", Tier: domain.TierOEM, Status: domain.AssignmentStatusActive}); err != nil {
			return err
		}
		return tx.UpdateTicket(ctx, locked)
	})
	require.NoError(t, err)

	stored, err := s.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
	assert.Equal(t, int64(2), stored.Version)

	active, err := s.Assignments().GetActive(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "e-1", active.EngineerID)
}

func TestWithTicketLock_DiscardsOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	ticket := newTicket(t, s)

	err := s.Locker().WithTicketLock(ctx, ticket.ID, func(ctx context.Context, tx repository.TicketTx) error {
		require.NoError(t, tx.InsertAssignment(ctx, &domain.Assignment{EngineerID: "e-1", Status: domain.AssignmentStatusActive}))
		require.NoError(t, tx.AppendHistory(ctx, &domain.StatusHistory{ToStatus: domain.TicketStatusAssigned}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = s.Assignments().GetActive(ctx, ticket.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	entries, err := s.History().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithTicketLock_SecondActiveRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	ticket := newTicket(t, s)

	err := s.Locker().WithTicketLock(ctx, ticket.ID, func(ctx context.Context, tx repository.TicketTx) error {
		require.NoError(t, tx.InsertAssignment(ctx, &domain.Assignment{EngineerID: "e-1", Status: domain.AssignmentStatusActive}))
		return tx.InsertAssignment(ctx, &domain.Assignment{EngineerID: "e-2", Status: domain.AssignmentStatusActive})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestWithTicketLock_UnknownTicket(t *testing.T) {
	s := New()
	err := s.Locker().WithTicketLock(context.Background(), "missing", func(context.Context, repository.TicketTx) error {
		return nil
	})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestWithTicketLock_TimesOutWhenBusy(t *testing.T) {
	s := New(WithLockTimeout(20 * time.Millisecond))
	ctx := context.Background()
	ticket := newTicket(t, s)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Locker().WithTicketLock(ctx, ticket.ID, func(context.Context, repository.TicketTx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := s.Locker().WithTicketLock(ctx, ticket.ID, func(context.Context, repository.TicketTx) error {
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrLockTimeout)

	close(release)
	require.NoError(t, <-done)
}

func lockCount(s *Store) int {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	return len(s.locks)
}

func TestWithTicketLock_ReleasesLockEntries(t *testing.T) {
	s := New(WithLockTimeout(20 * time.Millisecond))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ticket := newTicket(t, s)
		require.NoError(t, s.Locker().WithTicketLock(ctx, ticket.ID, func(context.Context, repository.TicketTx) error {
			assert.Equal(t, 1, lockCount(s))
			return nil
		}))
		_ = s.Locker().WithTicketLock(ctx, ticket.ID, func(context.Context, repository.TicketTx) error {
			return assert.AnError
		})
	}
	assert.Zero(t, lockCount(s))

	// a waiter that times out must not drop the entry the holder still uses
	busy := newTicket(t, s)
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Locker().WithTicketLock(ctx, busy.ID, func(context.Context, repository.TicketTx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	err := s.Locker().WithTicketLock(ctx, busy.ID, func(context.Context, repository.TicketTx) error {
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrLockTimeout)
	assert.Equal(t, 1, lockCount(s))

	close(release)
	require.NoError(t, <-done)
	assert.Zero(t, lockCount(s))
}

func TestWithTicketLock_DifferentTicketsDoNotBlock(t *testing.T) {
	s := New(WithLockTimeout(time.Second))
	ctx := context.Background()
	first := newTicket(t, s)
	second := newTicket(t, s)

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Locker().WithTicketLock(ctx, first.ID, func(context.Context, repository.TicketTx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	start := time.Now()
	err := s.Locker().WithTicketLock(ctx, second.ID, func(context.Context, repository.TicketTx) error {
		return nil
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	close(release)
	wg.Wait()
}

func TestUpdateTicket_StaleVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	ticket := newTicket(t, s)

	err := s.Locker().WithTicketLock(ctx, ticket.ID, func(ctx context.Context, tx repository.TicketTx) error {
		stale := *tx.Ticket()
		stale.Version = 99
		return tx.UpdateTicket(ctx, &stale)
	})
	assert.ErrorIs(t, err, repository.ErrStaleVersion)
}

func TestCloseAssignment_OnlyFromActive(t *testing.T) {
	s := New()
	ctx := context.Background()
	ticket := newTicket(t, s)

	err := s.Locker().WithTicketLock(ctx, ticket.ID, func(ctx context.Context, tx repository.TicketTx) error {
		a := &domain.Assignment{EngineerID: "e-1", Status: domain.AssignmentStatusActive}
		require.NoError(t, tx.InsertAssignment(ctx, a))
		require.NoError(t, tx.CloseAssignment(ctx, a.ID, domain.AssignmentStatusCompleted, "", time.Now()))
		return tx.CloseAssignment(ctx, a.ID, domain.AssignmentStatusCancelled, "", time.Now())
	})
	assert.ErrorIs(t, err, repository.ErrNotActive)
}

func TestAssociations_DeleteIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Organizations().Create(ctx, &domain.Organization{ID: "oem", Name: "OEM", Type: domain.OrgTypeManufacturer, Status: domain.OrgStatusActive}))
	require.NoError(t, s.Organizations().Create(ctx, &domain.Organization{ID: "dist", Name: "Dist", Type: domain.OrgTypeDistributor, Status: domain.OrgStatusActive}))
	require.NoError(t, s.Associations().Create(ctx, &domain.PartnerAssociation{ParentOrgID: "oem", PartnerOrgID: "dist", AssociationType: domain.AssociationGeneral}))

	removed, err := s.Associations().Delete(ctx, "oem", "dist", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = s.Associations().Delete(ctx, "oem", "dist", nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestApplySeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	content := `
organizations:
  - {id: oem, name: Acme Imaging, type: manufacturer}
  - {id: dist, name: North Dist, type: distributor}
  - {id: hosp, name: City Hospital, type: hospital}
engineers:
  - {id: e1, name: Ana, organization: oem, level: 3}
  - {id: e2, name: Bo, organization: dist, level: 1, inactive: true}
equipment:
  - {id: eq1, serial: SN-1, name: MRI, category: mri, manufacturer: oem, customer: hosp}
associations:
  - {parent: oem, partner: dist}
  - {parent: oem, partner: dist, equipment: eq1}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)

	s := New()
	require.NoError(t, s.Apply(context.Background(), seed))

	graph, err := s.Graph().Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, graph.Engineers("oem"), 1)
	assert.Empty(t, graph.Engineers("dist"))

	eq := "eq1"
	assocs, err := s.Associations().ListByParent(context.Background(), "oem")
	require.NoError(t, err)
	assert.Len(t, assocs, 2)
	specific, err := s.Associations().FindSpecific(context.Background(), "oem", eq)
	require.NoError(t, err)
	assert.Equal(t, "dist", specific.PartnerOrgID)
}

func TestApplySeed_RejectsUnknownType(t *testing.T) {
	s := New()
	err := s.Apply(context.Background(), &Seed{Organizations: []SeedOrganization{{ID: "x", Name: "x", Type: "vendor"}}})
	assert.Error(t, err)
}
