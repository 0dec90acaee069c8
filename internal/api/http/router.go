package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/supportpilot/internal/api/http/handlers"
	"github.com/spec-kit/supportpilot/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	Activity *handlers.ActivityHandler
	AI       *handlers.AIHandler
	Metrics  *observability.Metrics
}

// RegisterRoutes wires HTTP routes. The gateway route is only mounted when
// an in-process gateway is configured.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Delete("/", cfg.Tickets.ClearTickets)
	tickets.Post("/bulk/status", cfg.Tickets.BulkUpdateStatus)
	tickets.Post("/bulk/delete", cfg.Tickets.BulkDelete)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Get("/:id/ai", cfg.Tickets.GenerationState)
	tickets.Post("/:id/ai", cfg.Tickets.GenerateAnalysis)
	tickets.Post("/:id/ai/restore", cfg.Tickets.RestoreVersion)
	if cfg.Activity != nil {
		tickets.Get("/:id/activity", cfg.Activity.ListActivity)
	}

	if cfg.AI != nil {
		api.Post("/ai/ticket-analysis", cfg.AI.AnalyzeTicket)
	}
}
