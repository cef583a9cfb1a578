package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/briefwire/curator/internal/middleware"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, handlers *Handlers, adminKey string) {
	api := app.Group("/api/v1")

	api.Get("/health", handlers.HealthCheck)

	issues := api.Group("/issues")
	{
		issues.Get("/latest", handlers.GetLatestIssue)
		issues.Get("/:date", handlers.GetIssueByDate)
		issues.Get("/:date/picks", handlers.GetSlotPicks)
		issues.Patch("/:date/status", middleware.AdminOnly(adminKey), handlers.UpdateIssueStatus)
	}

	admin := api.Group("/admin", middleware.AdminOnly(adminKey))
	{
		admin.Post("/run", handlers.TriggerRun)
		admin.Post("/classify", handlers.TriggerClassify)
		admin.Post("/candidates", handlers.IngestCandidates)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
