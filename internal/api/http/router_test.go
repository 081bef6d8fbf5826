package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-service/internal/api/http/handlers"
	"github.com/spec-kit/equipment-service/internal/auth"
	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/events"
	"github.com/spec-kit/equipment-service/internal/observability"
	"github.com/spec-kit/equipment-service/internal/repository/memory"
	"github.com/spec-kit/equipment-service/internal/service"
)

type testServer struct {
	app   *fiber.App
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New(memory.WithLockTimeout(time.Second))
	dispatcher := events.NewInMemoryDispatcher(logger)

	graph := service.NewGraphService(service.GraphDependencies{
		OrganizationRepo: store.Organizations(),
		AssociationRepo:  store.Associations(),
		EngineerRepo:     store.Engineers(),
		EquipmentRepo:    store.Equipment(),
		GraphReader:      store.Graph(),
		SnapshotTimeout:  time.Second,
		Logger:           logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    store.Tickets(),
		EquipmentRepo: store.Equipment(),
		HistoryRepo:   store.History(),
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	workflow := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:    store.Tickets(),
		EquipmentRepo: store.Equipment(),
		EngineerRepo:  store.Engineers(),
		Locker:        store.Locker(),
		Graph:         graph,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		Workflow:             workflow,
		AssignmentRepo:       store.Assignments(),
		AutoAssignMaxRetries: 2,
		Logger:               logger,
	})

	tokens := auth.NewTokenManager("test-secret", 5, "")
	token, _, err := tokens.GenerateToken(domain.Actor{ID: "coordinator-1", Type: domain.ActorTypeUser})
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("equipment-service", "test", nil, nil, metrics),
		Tickets:        handlers.NewTicketsHandler(tickets, workflow),
		Assignments:    handlers.NewAssignmentsHandler(assignments),
		Organizations:  handlers.NewOrganizationsHandler(graph),
		Equipment:      handlers.NewEquipmentHandler(graph),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &testServer{app: app, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) create(t *testing.T, path string, body any) map[string]any {
	t.Helper()
	status, out := s.do(t, fiber.MethodPost, path, body)
	require.Equal(t, fiber.StatusCreated, status, out)
	return out["data"].(map[string]any)
}

func errorCode(out map[string]any) string {
	errBody, _ := out["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

// fixture builds a manufacturer with one general partner, a hospital and a
// scanner, and opens a ticket on it.
type fixture struct {
	acme, delta, hospital string
	olga, dan             string
	ticket                string
}

func seedFixture(t *testing.T, s *testServer) fixture {
	t.Helper()
	var f fixture
	f.acme = s.create(t, "/api/v1/organizations", map[string]any{"name": "Acme", "org_type": "manufacturer"})["id"].(string)
	f.delta = s.create(t, "/api/v1/organizations", map[string]any{"name": "Delta", "org_type": "distributor"})["id"].(string)
	f.hospital = s.create(t, "/api/v1/organizations", map[string]any{"name": "City Hospital", "org_type": "hospital"})["id"].(string)

	f.olga = s.create(t, "/api/v1/organizations/"+f.acme+"/engineers", map[string]any{"name": "Olga", "engineer_level": 3})["id"].(string)
	f.dan = s.create(t, "/api/v1/organizations/"+f.delta+"/engineers", map[string]any{"name": "Dan", "engineer_level": 2})["id"].(string)

	status, out := s.do(t, fiber.MethodPut, "/api/v1/organizations/"+f.acme+"/partners", map[string]any{
		"partner_org_id":   f.delta,
		"association_type": "general",
	})
	require.Equal(t, fiber.StatusOK, status, out)

	scanner := s.create(t, "/api/v1/equipment", map[string]any{
		"serial_number":   "SN-1",
		"name":            "CT Scanner",
		"category":        "Imaging",
		"manufacturer_id": f.acme,
		"customer_org_id": f.hospital,
	})["id"].(string)

	f.ticket = s.create(t, "/api/v1/tickets", map[string]any{"equipment_id": scanner, "title": "Tube failure"})["id"].(string)
	return f
}

func TestRoutes_RequireBearerToken(t *testing.T) {
	s := newTestServer(t)
	s.token = ""
	status, out := s.do(t, fiber.MethodGet, "/api/v1/tickets", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(out))

	s.token = "not-a-jwt"
	status, _ = s.do(t, fiber.MethodGet, "/api/v1/tickets", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealth_WithoutBackends(t *testing.T) {
	s := newTestServer(t)
	status, out := s.do(t, fiber.MethodGet, "/health/live", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", out["status"])

	status, out = s.do(t, fiber.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", out["status"])
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	f := seedFixture(t, s)
	base := "/api/v1/tickets/" + f.ticket

	status, out := s.do(t, fiber.MethodGet, base+"/eligible-engineers", nil)
	require.Equal(t, fiber.StatusOK, status)
	tiers := out["data"].([]any)
	require.Len(t, tiers, 2)
	assert.Equal(t, "tier_1", tiers[0].(map[string]any)["tier"])
	assert.Equal(t, "tier_2", tiers[1].(map[string]any)["tier"])

	status, out = s.do(t, fiber.MethodPost, base+"/transitions", map[string]any{"status": "assigned"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "MISSING_ASSIGNMENT", errorCode(out))

	status, out = s.do(t, fiber.MethodPost, base+"/transitions", map[string]any{"status": "resolved"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(out))

	assignment := s.create(t, base+"/assignments", map[string]any{"engineer_id": f.olga, "tier": "tier_1"})
	assert.Equal(t, "active", assignment["status"])

	status, out = s.do(t, fiber.MethodPost, base+"/assignments", map[string]any{"engineer_id": f.dan, "tier": "tier_2"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(out))

	status, out = s.do(t, fiber.MethodGet, base, nil)
	require.Equal(t, fiber.StatusOK, status)
	ticket := out["data"].(map[string]any)
	assert.Equal(t, "assigned", ticket["status"])
	assert.Equal(t, "Olga", ticket["assigned_engineer_name"])

	status, out = s.do(t, fiber.MethodPost, base+"/transitions", map[string]any{
		"status":  "in_progress",
		"version": ticket["version"],
	})
	require.Equal(t, fiber.StatusOK, status, out)

	reassigned := s.create(t, base+"/assignments/reassign", map[string]any{
		"engineer_id": f.dan,
		"tier":        "tier_2",
		"reason":      "needs on-site partner",
	})
	assert.Equal(t, "Dan", reassigned["engineer_name"])

	status, out = s.do(t, fiber.MethodGet, base+"/assignments", nil)
	require.Equal(t, fiber.StatusOK, status)
	records := out["data"].([]any)
	require.Len(t, records, 2)
	assert.Equal(t, "active", records[0].(map[string]any)["status"])
	assert.Equal(t, "reassigned", records[1].(map[string]any)["status"])

	status, _ = s.do(t, fiber.MethodPost, base+"/transitions", map[string]any{"status": "resolved"})
	require.Equal(t, fiber.StatusOK, status)

	status, out = s.do(t, fiber.MethodGet, base+"/assignments", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "completed", out["data"].([]any)[0].(map[string]any)["status"])

	status, out = s.do(t, fiber.MethodGet, base+"/status-history", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, out["data"])

	status, out = s.do(t, fiber.MethodGet, base+"/transitions", nil)
	require.Equal(t, fiber.StatusOK, status)
	allowed := out["data"].(map[string]any)
	assert.Equal(t, "resolved", allowed["status"])
	assert.ElementsMatch(t, []any{"closed", "in_progress", "cancelled"}, allowed["allowed"])
}

func TestStaleVersionIsConflict(t *testing.T) {
	s := newTestServer(t)
	f := seedFixture(t, s)

	status, out := s.do(t, fiber.MethodPost, "/api/v1/tickets/"+f.ticket+"/transitions", map[string]any{
		"status":  "cancelled",
		"version": 99,
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(out))
}

func TestAutoAssignOverHTTP(t *testing.T) {
	s := newTestServer(t)
	f := seedFixture(t, s)

	assignment := s.create(t, "/api/v1/tickets/"+f.ticket+"/assignments/auto", nil)
	assert.Equal(t, f.olga, assignment["engineer_id"])
	assert.Equal(t, "tier_1", assignment["tier"])

	status, out := s.do(t, fiber.MethodPost, "/api/v1/tickets/"+f.ticket+"/assignments/complete", nil)
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, "completed", out["data"].(map[string]any)["status"])
}

func TestPartnersOverHTTP(t *testing.T) {
	s := newTestServer(t)
	f := seedFixture(t, s)
	path := "/api/v1/organizations/" + f.acme + "/partners"

	status, out := s.do(t, fiber.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, out["data"], 1)

	status, _ = s.do(t, fiber.MethodDelete, path+"/"+f.delta, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = s.do(t, fiber.MethodDelete, path+"/"+f.delta, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, out = s.do(t, fiber.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, out["data"])

	status, out = s.do(t, fiber.MethodPut, path, map[string]any{
		"partner_org_id":   f.delta,
		"association_type": "equipment_specific",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(out))
}

func TestUnknownTicketIsNotFound(t *testing.T) {
	s := newTestServer(t)
	status, out := s.do(t, fiber.MethodGet, "/api/v1/tickets/does-not-exist", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(out))
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	s := newTestServer(t)
	status, out := s.do(t, fiber.MethodGet, "/nowhere", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(out))
}

func TestMetricsCountRequests(t *testing.T) {
	s := newTestServer(t)
	s.do(t, fiber.MethodGet, "/health/live", nil)

	status, out := s.do(t, fiber.MethodGet, "/metrics", nil)
	require.Equal(t, fiber.StatusOK, status)
	requests := out["data"].(map[string]any)["requests"].(map[string]any)
	assert.Equal(t, float64(1), requests["/health/live|GET|200"])
}
