package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/municipal-services/internal/api/http/handlers"
	"github.com/civic-kit/municipal-services/internal/auth"
	"github.com/civic-kit/municipal-services/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.RequestsHandler
	Assignments    *handlers.AssignmentsHandler
	Notifications  *handlers.NotificationsHandler
	Catalog        *handlers.CatalogHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/profile", cfg.AuthMiddleware.Handle, cfg.Users.Profile)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	catalog := protected.Group("/catalog")
	catalog.Get("/service-types", cfg.Catalog.ServiceTypes)
	catalog.Get("/service-areas", cfg.Catalog.ServiceAreas)

	requests := protected.Group("/requests")
	requests.Post("", cfg.Requests.Create)
	requests.Get("", cfg.Requests.List)
	requests.Get("/:ticket", cfg.Requests.Get)
	requests.Post("/:ticket/cancel", cfg.Requests.Cancel)
	requests.Post("/:ticket/comments", cfg.Requests.AddComment)
	requests.Get("/:ticket/history", cfg.Requests.History)
	requests.Post("/:ticket/status", auth.RequireStaff(), cfg.Requests.ChangeStatus)
	requests.Post("/:ticket/assignments",
		auth.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Assignments.Create)

	assignments := protected.Group("/assignments", auth.RequireStaff())
	assignments.Get("", cfg.Assignments.List)
	assignments.Get("/:id", cfg.Assignments.Get)
	assignments.Post("/:id/accept", cfg.Assignments.Accept)
	assignments.Post("/:id/start", cfg.Assignments.Start)
	assignments.Post("/:id/progress", cfg.Assignments.RecordProgress)
	assignments.Post("/:id/complete", cfg.Assignments.Complete)
	assignments.Post("/:id/cancel",
		auth.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Assignments.Cancel)

	users := protected.Group("/users")
	users.Get("/technicians",
		auth.RequireRole(domain.RoleAdmin, domain.RoleManager), cfg.Users.ListTechnicians)

	notifications := protected.Group("/notifications")
	notifications.Get("", cfg.Notifications.Feed)
	notifications.Get("/unread", cfg.Notifications.UnreadCount)

	stats := protected.Group("/stats")
	stats.Get("/dashboard", cfg.Stats.Dashboard)
}
