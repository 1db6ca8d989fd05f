package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/aftersales-service/internal/api/http/handlers"
	"github.com/spec-kit/aftersales-service/internal/auth"
	"github.com/spec-kit/aftersales-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Liability      *handlers.LiabilityHandler
	Analytics      *handlers.AnalyticsHandler
	DebtLedger     *handlers.DebtLedgerHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1/after-sales", cfg.AuthMiddleware.Handle, auth.RequireSession())

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/cost-closure", auth.RequirePermission(auth.PermissionCostClose), cfg.Tickets.CloseCost)
	tickets.Get("/:id/financial-closure", cfg.Tickets.FinancialClosure)
	tickets.Post("/:id/liability-notices", cfg.Liability.Create)
	tickets.Get("/:id/liability-notices", cfg.Liability.List)

	notices := api.Group("/liability-notices")
	notices.Patch("/:id", cfg.Liability.Revise)
	notices.Post("/:id/submit", cfg.Liability.Submit)
	notices.Post("/:id/confirm", cfg.Liability.Confirm)
	notices.Post("/:id/dispute", cfg.Liability.Dispute)
	notices.Post("/:id/arbitrate", auth.RequirePermission(auth.PermissionArbitrate), cfg.Liability.Arbitrate)
	notices.Post("/:id/finance-sync", auth.RequirePermission(auth.PermissionReconcile), cfg.Liability.RetryFinanceSync)

	api.Get("/analytics/quality", cfg.Analytics.Quality)
	api.Get("/debt-ledger/:party_type/:party_id", cfg.DebtLedger.Summary)
}
