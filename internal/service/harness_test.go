package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/events"
	"github.com/spec-kit/equipment-service/internal/repository/memory"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (r *recordingDispatcher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingDispatcher) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var (
	coordinator = domain.Actor{ID: "coordinator-1", Type: domain.ActorTypeUser}
	autoPolicy  = domain.SystemActor("auto-assign")
)

// harness wires every service over one memory store seeded with:
//
//	Acme (manufacturer) -> Olga
//	Delta (distributor, general partner of Acme) -> Dan, Dora
//	Sigma (service_provider, tags imaging) -> Sam
//	City Hospital (hospital) -> Hana
//	scanner: Acme equipment, category "Imaging", installed at City Hospital
type harness struct {
	store       *memory.Store
	dispatcher  *recordingDispatcher
	graph       *GraphService
	tickets     *TicketService
	workflow    *WorkflowService
	assignments *AssignmentService

	acme, delta, sigma, hospital domain.Organization
	olga, dan, dora, sam, hana   domain.Engineer
	scanner                      domain.Equipment
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:      memory.New(memory.WithLockTimeout(2 * time.Second)),
		dispatcher: &recordingDispatcher{},
	}
	h.graph = NewGraphService(GraphDependencies{
		OrganizationRepo: h.store.Organizations(),
		AssociationRepo:  h.store.Associations(),
		EngineerRepo:     h.store.Engineers(),
		EquipmentRepo:    h.store.Equipment(),
		GraphReader:      h.store.Graph(),
		SnapshotTimeout:  time.Second,
	})
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:    h.store.Tickets(),
		EquipmentRepo: h.store.Equipment(),
		HistoryRepo:   h.store.History(),
		Dispatcher:    h.dispatcher,
	})
	h.workflow = NewWorkflowService(WorkflowDependencies{
		TicketRepo:    h.store.Tickets(),
		EquipmentRepo: h.store.Equipment(),
		EngineerRepo:  h.store.Engineers(),
		Locker:        h.store.Locker(),
		Graph:         h.graph,
		Dispatcher:    h.dispatcher,
	})
	h.assignments = NewAssignmentService(AssignmentDependencies{
		Workflow:             h.workflow,
		AssignmentRepo:       h.store.Assignments(),
		AutoAssignMaxRetries: 3,
	})

	h.acme = h.org(t, "Acme", domain.OrgTypeManufacturer)
	h.delta = h.org(t, "Delta", domain.OrgTypeDistributor)
	h.sigma = h.org(t, "Sigma", domain.OrgTypeServiceProvider, "Imaging")
	h.hospital = h.org(t, "City Hospital", domain.OrgTypeHospital)

	h.olga = h.engineer(t, h.acme.ID, "Olga", 3)
	h.dan = h.engineer(t, h.delta.ID, "Dan", 2)
	h.dora = h.engineer(t, h.delta.ID, "Dora", 1)
	h.sam = h.engineer(t, h.sigma.ID, "Sam", 2)
	h.hana = h.engineer(t, h.hospital.ID, "Hana", 1)

	h.scanner = h.equipment(t, "SN-1", "Imaging")

	_, err := h.graph.UpsertAssociation(context.Background(), AssociationInput{
		ParentOrgID:     h.acme.ID,
		PartnerOrgID:    h.delta.ID,
		AssociationType: domain.AssociationGeneral,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) org(t *testing.T, name string, typ domain.OrgType, tags ...string) domain.Organization {
	t.Helper()
	org, err := h.graph.CreateOrganization(context.Background(), OrganizationInput{Name: name, Type: typ, Specializations: tags})
	require.NoError(t, err)
	return *org
}

func (h *harness) engineer(t *testing.T, orgID, name string, level domain.EngineerLevel) domain.Engineer {
	t.Helper()
	eng, err := h.graph.CreateEngineer(context.Background(), EngineerInput{OrganizationID: orgID, Name: name, Level: level})
	require.NoError(t, err)
	return *eng
}

func (h *harness) equipment(t *testing.T, serial, category string) domain.Equipment {
	t.Helper()
	eq, err := h.graph.CreateEquipment(context.Background(), EquipmentInput{
		SerialNumber:   serial,
		Name:           "MRI " + serial,
		Category:       category,
		ManufacturerID: h.acme.ID,
		CustomerOrgID:  h.hospital.ID,
	})
	require.NoError(t, err)
	return *eq
}

func (h *harness) newTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	return h.ticketFor(t, h.scanner.ID)
}

func (h *harness) ticketFor(t *testing.T, equipmentID string) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), coordinator, TicketCreateInput{
		EquipmentID: equipmentID,
		Title:       "Image artifacts",
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	return ticket
}

func (h *harness) status(t *testing.T, ticketID string) domain.TicketStatus {
	t.Helper()
	ticket, err := h.tickets.GetTicket(context.Background(), ticketID)
	require.NoError(t, err)
	return ticket.Status
}

func (h *harness) activeCount(t *testing.T, ticketID string) int {
	t.Helper()
	records, err := h.assignments.History(context.Background(), ticketID)
	require.NoError(t, err)
	n := 0
	for _, r := range records {
		if r.Status == domain.AssignmentStatusActive {
			n++
		}
	}
	return n
}
