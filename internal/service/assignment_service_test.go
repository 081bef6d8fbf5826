package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/events"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

func TestEligibleEngineers_TierOrder(t *testing.T) {
	h := newHarness(t)
	ticket := h.newTicket(t)

	resolution, err := h.assignments.EligibleEngineers(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, resolution, 4)
	assert.Equal(t, domain.TierOEM, resolution[0].Tier)
	assert.Equal(t, h.acme.ID, resolution[0].OrganizationID)
	assert.Equal(t, domain.TierPartner, resolution[1].Tier)
	assert.Equal(t, []string{h.dan.ID, h.dora.ID}, engineerIDs(resolution[1].Engineers))
	assert.Equal(t, domain.TierServiceProvider, resolution[2].Tier)
	assert.Equal(t, h.sigma.ID, resolution[2].OrganizationID)
	assert.Equal(t, domain.TierHospital, resolution[3].Tier)
	assert.Equal(t, h.hospital.ID, resolution[3].OrganizationID)
}

func engineerIDs(list []domain.Engineer) []string {
	ids := make([]string, len(list))
	for i, e := range list {
		ids[i] = e.ID
	}
	return ids
}

func TestEligibleEngineers_EquipmentOverrideWinsOverGeneral(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	override := h.org(t, "Omega Imaging", domain.OrgTypeDealer)
	olek := h.engineer(t, override.ID, "Olek", 2)
	eq := h.scanner.ID
	_, err := h.graph.UpsertAssociation(ctx, AssociationInput{
		ParentOrgID: h.acme.ID, PartnerOrgID: override.ID, AssociationType: domain.AssociationEquipmentSpecific, EquipmentID: &eq,
	})
	require.NoError(t, err)

	resolution, err := h.assignments.EligibleEngineers(ctx, h.newTicket(t).ID)
	require.NoError(t, err)
	pool := resolution.Pool(domain.TierPartner)
	require.Len(t, pool, 1)
	assert.Equal(t, olek.ID, pool[0].ID)
	assert.Equal(t, []string{override.ID}, resolution.Organizations(domain.TierPartner))

	// the general partner is not pushed into a later tier either
	for _, candidate := range resolution {
		assert.NotEqual(t, h.delta.ID, candidate.OrganizationID)
	}
}

func TestEligibleEngineers_NoPartnersScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.graph.RemoveAssociation(ctx, h.acme.ID, h.delta.ID, nil))
	plain := h.equipment(t, "SN-9", "")

	resolution, err := h.assignments.EligibleEngineers(ctx, h.ticketFor(t, plain.ID).ID)
	require.NoError(t, err)
	require.Len(t, resolution, 2)
	assert.Equal(t, domain.TierOEM, resolution[0].Tier)
	assert.Equal(t, h.olga.ID, resolution[0].Engineers[0].ID)
	assert.Empty(t, resolution.Pool(domain.TierPartner))
	assert.Empty(t, resolution.Pool(domain.TierServiceProvider))
	assert.Equal(t, domain.TierHospital, resolution[1].Tier)
	assert.Equal(t, h.hana.ID, resolution[1].Engineers[0].ID)
}

func TestAssign_MovesNewToAssignedAndRejectsSecond(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	record, err := h.assignments.Assign(ctx, ticket.ID, h.olga.ID, domain.TierOEM, coordinator)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusActive, record.Status)
	assert.Equal(t, domain.TierOEM, record.Tier)
	assert.Equal(t, h.acme.ID, record.OrganizationID)
	assert.Equal(t, domain.TicketStatusAssigned, h.status(t, ticket.ID))

	_, err = h.assignments.Assign(ctx, ticket.ID, h.dan.ID, domain.TierPartner, coordinator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, 1, h.activeCount(t, ticket.ID))
}

func TestAssign_RejectsEngineerOutsideTier(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	_, err := h.assignments.Assign(ctx, ticket.ID, h.dan.ID, domain.TierOEM, coordinator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.assignments.Assign(ctx, ticket.ID, "missing", domain.TierOEM, coordinator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.assignments.Assign(ctx, ticket.ID, h.olga.ID, "tier_9", coordinator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.graph.DeactivateEngineer(ctx, h.olga.ID)
	require.NoError(t, err)
	_, err = h.assignments.Assign(ctx, ticket.ID, h.olga.ID, domain.TierOEM, coordinator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.assignments.Assign(ctx, "missing", h.dan.ID, domain.TierPartner, coordinator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	assert.Equal(t, domain.TicketStatusNew, h.status(t, ticket.ID))
	assert.Equal(t, 0, h.activeCount(t, ticket.ID))
}

func TestReassign_HistoryMostRecentFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	_, err := h.assignments.Assign(ctx, ticket.ID, h.dan.ID, domain.TierPartner, coordinator)
	require.NoError(t, err)
	h.dispatcher.reset()

	record, err := h.assignments.Reassign(ctx, ticket.ID, h.sam.ID, domain.TierServiceProvider, coordinator, "E1 unavailable")
	require.NoError(t, err)
	assert.Equal(t, h.sam.ID, record.EngineerID)

	records, err := h.assignments.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, h.sam.ID, records[0].EngineerID)
	assert.Equal(t, domain.AssignmentStatusActive, records[0].Status)
	assert.Equal(t, domain.TierServiceProvider, records[0].Tier)
	assert.Equal(t, h.dan.ID, records[1].EngineerID)
	assert.Equal(t, domain.AssignmentStatusReassigned, records[1].Status)
	assert.Equal(t, "E1 unavailable", records[1].Reason)
	assert.NotNil(t, records[1].EndedAt)

	ticketNow, err := h.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticketNow.Status)
	require.NotNil(t, ticketNow.AssignedEngineerName)
	assert.Equal(t, "Sam", *ticketNow.AssignedEngineerName)

	assert.Equal(t, []events.EventType{events.EventTicketReassigned}, h.dispatcher.types())
}

func TestReassign_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	_, err := h.assignments.Reassign(ctx, ticket.ID, h.sam.ID, domain.TierServiceProvider, coordinator, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.assignments.Reassign(ctx, ticket.ID, h.sam.ID, domain.TierServiceProvider, coordinator, "no one yet")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.assignments.Assign(ctx, ticket.ID, h.sam.ID, domain.TierServiceProvider, coordinator)
	require.NoError(t, err)
	_, err = h.assignments.Reassign(ctx, ticket.ID, h.sam.ID, domain.TierServiceProvider, coordinator, "same person")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestReassign_ConcurrentSameVersionExactlyOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)
	_, err := h.assignments.Assign(ctx, ticket.ID, h.dan.ID, domain.TierPartner, coordinator)
	require.NoError(t, err)
	current, err := h.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)

	type attempt struct {
		engineer domain.Engineer
		tier     domain.AssignmentTier
	}
	attempts := []attempt{{h.sam, domain.TierServiceProvider}, {h.hana, domain.TierHospital}}
	errs := make([]error, len(attempts))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			<-start
			_, errs[i] = h.assignments.Reassign(ctx, ticket.ID, a.engineer.ID, a.tier, coordinator, "rebalance",
				WithExpectedVersion(current.Version))
		}(i, a)
	}
	close(start)
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperrors.HasCode(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, h.activeCount(t, ticket.ID))

	records, err := h.assignments.History(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLedger_AtMostOneActiveUnderContention(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = h.assignments.Assign(ctx, ticket.ID, h.olga.ID, domain.TierOEM, coordinator)
				return
			}
			_, _ = h.assignments.Reassign(ctx, ticket.ID, h.dan.ID, domain.TierPartner, coordinator, "swap")
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, h.activeCount(t, ticket.ID), 1)
}

func TestComplete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	_, err := h.assignments.Complete(ctx, ticket.ID, coordinator)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.assignments.Assign(ctx, ticket.ID, h.olga.ID, domain.TierOEM, coordinator)
	require.NoError(t, err)
	completed, err := h.assignments.Complete(ctx, ticket.ID, coordinator)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusCompleted, completed.Status)
	assert.Equal(t, 0, h.activeCount(t, ticket.ID))
	assert.Equal(t, domain.TicketStatusAssigned, h.status(t, ticket.ID))
}

func TestHistory_UnknownTicket(t *testing.T) {
	h := newHarness(t)
	_, err := h.assignments.History(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAutoAssign_PicksEarliestTier(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.newTicket(t)

	record, err := h.assignments.AutoAssign(ctx, ticket.ID, autoPolicy)
	require.NoError(t, err)
	assert.Equal(t, h.olga.ID, record.EngineerID)
	assert.Equal(t, domain.TierOEM, record.Tier)
	assert.Equal(t, autoPolicy.ID, record.AssignedBy)
	assert.Equal(t, domain.TicketStatusAssigned, h.status(t, ticket.ID))

	_, err = h.assignments.AutoAssign(ctx, ticket.ID, autoPolicy)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestAutoAssign_NoEligibleEngineer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bare := h.org(t, "Bare Manufacturing", domain.OrgTypeManufacturer)
	clinic := h.org(t, "Small Clinic", domain.OrgTypeHospital)
	eq, err := h.graph.CreateEquipment(ctx, EquipmentInput{SerialNumber: "SN-0", ManufacturerID: bare.ID, CustomerOrgID: clinic.ID})
	require.NoError(t, err)
	ticket := h.ticketFor(t, eq.ID)

	resolution, err := h.assignments.EligibleEngineers(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, resolution.Empty())

	_, err = h.assignments.AutoAssign(ctx, ticket.ID, autoPolicy)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoEligible))
	assert.Equal(t, domain.TicketStatusNew, h.status(t, ticket.ID))
}
