// receipt-worker runs a single worker batch against the job store and
// prints the run summary. Useful for cron-driven deployments and for
// draining a backlog by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tallyleaf/receiptpipe/internal/common"
	"github.com/tallyleaf/receiptpipe/internal/llm"
	"github.com/tallyleaf/receiptpipe/internal/llm/openai"
	"github.com/tallyleaf/receiptpipe/internal/processor"
	"github.com/tallyleaf/receiptpipe/internal/ratelimit"
	"github.com/tallyleaf/receiptpipe/internal/repository"
	"github.com/tallyleaf/receiptpipe/internal/worker"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 0, "max in-flight jobs (defaults to WORKER_CONCURRENCY)")
		staleAfter  = flag.Duration("stale-after", 0, "claim age before requeue (defaults to WORKER_STALE_AFTER)")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
	if *concurrency > 0 {
		cfg.Worker.Concurrency = *concurrency
	}
	if *staleAfter > 0 {
		cfg.Worker.StaleAfter = *staleAfter
	}

	ctx := context.Background()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
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

	jobsRepo := repository.NewReceiptJobRepository(pool, logger)
	txRepo := repository.NewTransactionRepository(pool, logger)

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

	sum, err := wrk.Run(ctx)
	if err != nil {
		logger.Error("worker run failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Worker run complete!\n")
	fmt.Printf("- Requeued:  %d\n", sum.Requeued)
	fmt.Printf("- Processed: %d\n", sum.Processed)
	fmt.Printf("- Succeeded: %d\n", sum.Succeeded)
	fmt.Printf("- Failed:    %d\n", sum.Failed)
	fmt.Printf("- Skipped:   %d\n", sum.Skipped)
}
