package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Cases          *handlers.CasesHandler
	Rules          *handlers.RulesHandler
	Notifications  *handlers.NotificationsHandler
	Cache          *handlers.CacheHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Every /api route needs a bearer token; writes need
// the agent role and rule or cache administration needs admin.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/token", cfg.Auth.Token)

	agent := auth.RequireRole(auth.RoleAgent)
	admin := auth.RequireRole(auth.RoleAdmin)
	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.RoleViewer))

	api.Get("/cases", cfg.Cases.ListCases)
	api.Post("/cases", agent, cfg.Cases.CreateCase)
	api.Get("/cases/:id", cfg.Cases.GetCase)
	api.Post("/cases/:id/assign", agent, cfg.Cases.AssignCase)
	api.Post("/cases/:id/status", agent, cfg.Cases.ChangeStatus)
	api.Post("/cases/:id/replies", agent, cfg.Cases.RecordReply)
	api.Get("/cases/:id/executions", cfg.Cases.ListExecutions)
	api.Get("/stats/cases", cfg.Cases.Stats)
	api.Post("/sla/check", agent, cfg.Cases.CheckSLA)

	api.Get("/notifications", cfg.Notifications.List)
	api.Get("/notifications/stats", cfg.Notifications.Stats)
	api.Get("/notifications/inbox/:recipient", cfg.Notifications.Inbox)
	api.Post("/notifications/:id/delivered", agent, cfg.Notifications.MarkDelivered)

	api.Get("/rules", cfg.Rules.ListRules)
	api.Put("/rules/:id/enabled", admin, cfg.Rules.SetEnabled)

	api.Get("/cache/stats", cfg.Cache.Stats)
	api.Delete("/cache", admin, cfg.Cache.Clear)
}
