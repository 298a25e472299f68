// Package server exposes the ingestion pipeline over HTTP.
package server

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tallyleaf/receiptpipe/internal/export"
	"github.com/tallyleaf/receiptpipe/internal/repository"
	"github.com/tallyleaf/receiptpipe/internal/worker"
)

type Server struct {
	jobs     repository.ReceiptJobRepository
	txs      repository.TransactionRepository
	stats    repository.StatsRepository
	exporter *export.Service
	worker   *worker.Worker
	validate *validator.Validate
	logger   *slog.Logger
}

func New(
	jobs repository.ReceiptJobRepository,
	txs repository.TransactionRepository,
	stats repository.StatsRepository,
	exporter *export.Service,
	wrk *worker.Worker,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		jobs:     jobs,
		txs:      txs,
		stats:    stats,
		exporter: exporter,
		worker:   wrk,
		validate: validator.New(),
		logger:   logger,
	}
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "receiptpipe",
		ErrorHandler: s.errorHandler,
	})
	app.Use(recover.New())

	app.Get("/health", s.health)

	v1 := app.Group("/v1")
	v1.Post("/jobs", s.createJob)
	v1.Get("/jobs/:id", s.getJob)
	v1.Post("/jobs/:id/discard", s.discardJob)

	v1.Post("/worker/run", s.runWorker)

	v1.Get("/users/:id/stats", s.userStats)
	v1.Get("/users/:id/export", s.userExport)

	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	s.logger.Error("http.request.failed", "path", c.Path(), "status", code, "err", err)
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
