package server

import (
	"context"
	"time"

	"github.com/conveyorhq/conveyor/internal/controllers"
	"github.com/conveyorhq/conveyor/internal/version"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

type HTTPServerDependencies struct {
	DebugController     *controllers.DebugController
	ExecutionController *controllers.ExecutionController
}

func NewHTTPServer(ctx context.Context, deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "conveyor-engine",
	})

	router.Use(cors.New())
	router.Use(logger.New())

	router.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "conveyor-engine",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.Get("/node-types", deps.ExecutionController.ListNodeTypes)

	workspace := router.Group("/workspaces/:workspaceID")

	workspace.Post("/executions", deps.ExecutionController.StartExecution)

	workspace.Post("/debug-sessions", deps.DebugController.CreateSession)
	workspace.Get("/debug-sessions/:sessionID", deps.DebugController.GetSession)
	workspace.Post("/debug-sessions/:sessionID/start", deps.DebugController.StartSession)
	workspace.Post("/debug-sessions/:sessionID/step", deps.DebugController.StepOver)
	workspace.Post("/debug-sessions/:sessionID/continue", deps.DebugController.ContinueSession)
	workspace.Post("/debug-sessions/:sessionID/terminate", deps.DebugController.TerminateSession)
	workspace.Get("/debug-sessions/:sessionID/breakpoints", deps.DebugController.GetSessionBreakpoints)
	workspace.Put("/debug-sessions/:sessionID/breakpoints", deps.DebugController.ToggleSessionBreakpoint)

	workspace.Get("/workflows/:workflowID/breakpoints", deps.DebugController.GetWorkflowBreakpoints)
	workspace.Put("/workflows/:workflowID/breakpoints", deps.DebugController.ToggleWorkflowBreakpoint)

	return router
}
