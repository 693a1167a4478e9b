package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codyssea/codyssea-go-api/internal/config"
	"github.com/codyssea/codyssea-go-api/internal/handler"
	"github.com/codyssea/codyssea-go-api/internal/middleware"
	"github.com/codyssea/codyssea-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler *handler.GradingHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Grading pipeline (submissions, status, stats)
	if deps.GradingHandler != nil {
		grading := app.Group("/api/v2/grading", jwtMiddleware)

		submissionGroup := grading.Group("/submissions", middleware.RateLimit("grading_submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow))
		deps.GradingHandler.Register(submissionGroup)
	}
}
