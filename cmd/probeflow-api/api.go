// Package main provides the probeflow findings API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/probeflow/probeflow/pkg/storage"
	"github.com/probeflow/probeflow/pkg/web"
)

type API struct {
	logger *slog.Logger
	store  storage.Storage
}

func NewAPI(logger *slog.Logger, store storage.Storage) *API {
	return &API{
		logger: logger,
		store:  store,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.store)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Probeflow API")
	})

	app.Get("/projects/:projectId/findings", handlers.GetFindings)
	app.Get("/findings/:id", handlers.GetFinding)
	app.Patch("/findings/:id/status", handlers.UpdateFindingStatus)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
