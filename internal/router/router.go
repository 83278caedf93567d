package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sgpti/sgpti-api/internal/config"
	"github.com/sgpti/sgpti-api/internal/handler"
	"github.com/sgpti/sgpti-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProjectHandler      *handler.ProjectHandler
	CommentHandler      *handler.CommentHandler
	DocumentHandler     *handler.DocumentHandler
	NotificationHandler *handler.NotificationHandler
	HealthChecks        map[string]handler.Pinger
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.Register(api.Group("/documents", jwtMiddleware))
	}

	if deps.ProjectHandler != nil {
		projects := api.Group("/projects", jwtMiddleware)
		deps.ProjectHandler.Register(projects)

		if deps.CommentHandler != nil {
			deps.CommentHandler.RegisterProjectRoutes(projects)
		}
		if deps.DocumentHandler != nil {
			deps.DocumentHandler.RegisterProjectRoutes(projects)
		}
	}

	if deps.CommentHandler != nil {
		deps.CommentHandler.Register(api.Group("/comments", jwtMiddleware))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", jwtMiddleware))
	}
}
