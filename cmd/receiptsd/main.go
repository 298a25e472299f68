package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tallyleaf/receiptpipe/internal/common"
	"github.com/tallyleaf/receiptpipe/internal/export"
	"github.com/tallyleaf/receiptpipe/internal/llm"
	"github.com/tallyleaf/receiptpipe/internal/llm/openai"
	"github.com/tallyleaf/receiptpipe/internal/processor"
	"github.com/tallyleaf/receiptpipe/internal/ratelimit"
	"github.com/tallyleaf/receiptpipe/internal/repository"
	"github.com/tallyleaf/receiptpipe/internal/server"
	"github.com/tallyleaf/receiptpipe/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if cfg.Database.MigrateOnStart {
		if err := repository.Migrate(pool, logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	jobsRepo := repository.NewReceiptJobRepository(pool, logger)
	txRepo := repository.NewTransactionRepository(pool, logger)
	statsRepo := repository.NewStatsRepository(pool, logger)

	var extractor llm.FieldExtractor
	if cfg.LLM.APIKey != "" {
		extractor = openai.NewClient(openai.Config{
			BaseURL:         cfg.LLM.BaseURL,
			Model:           cfg.LLM.Model,
			APIKey:          cfg.LLM.APIKey,
			Temperature:     cfg.LLM.Temperature,
			Timeout:         cfg.LLM.Timeout,
			LenientOptional: true,
		}, logger)
		logger.Info("llm client initialized", "model", cfg.LLM.Model)
	} else {
		logger.Warn("llm api key not configured, extraction is heuristic-only")
	}

	limiter := ratelimit.NewMemoryLimiter()
	policy := ratelimit.Policy{
		Limit:  cfg.RateLimit.ProviderLimit,
		Window: cfg.RateLimit.ProviderWindow,
	}

	proc := processor.New(logger, extractor, limiter, policy, txRepo)
	wrk := worker.New(jobsRepo, proc.Process, worker.Options{
		Concurrency:  cfg.Worker.Concurrency,
		StaleAfter:   cfg.Worker.StaleAfter,
		AttemptLimit: cfg.Worker.AttemptLimit,
	}, logger)

	exporter := export.NewService(txRepo, logger)
	srv := server.New(jobsRepo, txRepo, statsRepo, exporter, wrk, logger)
	app := srv.App()

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := app.Listen(cfg.Server.Addr); err != nil {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	// Background scheduler: one worker batch per tick.
	go func() {
		ticker := time.NewTicker(cfg.Worker.RunInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := wrk.Run(ctx); err != nil {
					logger.Error("scheduled worker run failed", "error", err)
				}
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
