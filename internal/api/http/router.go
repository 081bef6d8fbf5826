package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-service/internal/api/http/handlers"
	"github.com/spec-kit/equipment-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	Organizations  *handlers.OrganizationsHandler
	Equipment      *handlers.EquipmentHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/transitions", cfg.Tickets.AllowedTransitions)
	tickets.Post("/:id/transitions", cfg.Tickets.Transition)
	tickets.Get("/:id/status-history", cfg.Tickets.StatusHistory)

	tickets.Get("/:id/assignments", cfg.Assignments.History)
	tickets.Post("/:id/assignments", cfg.Assignments.Assign)
	tickets.Post("/:id/assignments/reassign", cfg.Assignments.Reassign)
	tickets.Post("/:id/assignments/complete", cfg.Assignments.Complete)
	tickets.Post("/:id/assignments/auto", cfg.Assignments.AutoAssign)
	tickets.Get("/:id/eligible-engineers", cfg.Assignments.EligibleEngineers)

	orgs := api.Group("/organizations")
	orgs.Post("/", cfg.Organizations.CreateOrganization)
	orgs.Get("/", cfg.Organizations.ListOrganizations)
	orgs.Get("/:id", cfg.Organizations.GetOrganization)
	orgs.Post("/:id/deactivate", cfg.Organizations.DeactivateOrganization)
	orgs.Get("/:id/partners", cfg.Organizations.GetPartners)
	orgs.Put("/:id/partners", cfg.Organizations.UpsertPartner)
	orgs.Delete("/:id/partners/:partnerId", cfg.Organizations.RemovePartner)
	orgs.Post("/:id/engineers", cfg.Organizations.CreateEngineer)
	orgs.Get("/:id/engineers", cfg.Organizations.ListEngineers)

	api.Post("/engineers/:id/deactivate", cfg.Organizations.DeactivateEngineer)

	equipment := api.Group("/equipment")
	equipment.Post("/", cfg.Equipment.CreateEquipment)
	equipment.Get("/:id", cfg.Equipment.GetEquipment)
}
