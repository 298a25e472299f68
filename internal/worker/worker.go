// Package worker drives one run-to-completion batch over the job store.
// Continuous processing comes from repeated invocation by a scheduler;
// the worker itself keeps no state between runs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tallyleaf/receiptpipe/internal/entity"
	"github.com/tallyleaf/receiptpipe/internal/repository"
)

// ProcessFunc performs the extraction for one claimed job. It may call an
// external OCR/LLM provider (through the rate limiter); an error marks the
// job FAILED for this attempt.
type ProcessFunc func(ctx context.Context, job *entity.ReceiptJob) (*entity.ExtractionResult, error)

// Options tune a worker run.
type Options struct {
	// Concurrency is a hard cap on in-flight jobs and also the batch size
	// fetched per run.
	Concurrency int
	// StaleAfter is how long a PROCESSING claim may age before the job is
	// presumed abandoned and requeued.
	StaleAfter time.Duration
	// AttemptLimit bounds requeue-driven retries: a claimed job that has
	// already accrued this many attempts is failed without processing.
	AttemptLimit int
}

func (o *Options) defaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 10 * time.Minute
	}
	if o.AttemptLimit <= 0 {
		o.AttemptLimit = 3
	}
}

// Summary covers a single run only.
type Summary struct {
	Requeued  int `json:"requeued"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Worker orchestrates stale recovery, claiming and bounded dispatch.
// All dependencies are injected; there is no ambient state.
type Worker struct {
	repo    repository.ReceiptJobRepository
	process ProcessFunc
	opts    Options
	logger  *slog.Logger
}

func New(repo repository.ReceiptJobRepository, process ProcessFunc, opts Options, logger *slog.Logger) *Worker {
	opts.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{repo: repo, process: process, opts: opts, logger: logger}
}

// Run executes one batch: requeue stale jobs first (stuck work is
// recovered before any fresh claim), fetch up to Concurrency pending
// jobs oldest-first, claim each, and dispatch the claimed ones under a
// semaphore. Per-job failures never abort the batch.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary

	requeued, err := w.repo.RequeueStale(ctx, w.opts.StaleAfter)
	if err != nil {
		w.logger.Error("worker.requeue.failed", "err", err)
		return sum, fmt.Errorf("requeue stale jobs: %w", err)
	}
	sum.Requeued = len(requeued)

	pending, err := w.repo.FindPending(ctx, w.opts.Concurrency)
	if err != nil {
		w.logger.Error("worker.fetch.failed", "err", err)
		return sum, fmt.Errorf("find pending jobs: %w", err)
	}
	w.logger.Info("worker.run.start",
		"requeued", sum.Requeued,
		"pending", len(pending),
		"concurrency", w.opts.Concurrency,
	)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(w.opts.Concurrency))
	)

	for _, job := range pending {
		claimed, err := w.repo.Claim(ctx, job.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotClaimed) {
				// Another worker took it; expected under contention.
				sum.Skipped++
				continue
			}
			// Storage failure: abort this job for the run, leave its
			// state untouched, keep going with the rest of the batch.
			w.logger.Error("worker.claim.failed", "job_id", job.ID, "err", err)
			sum.Skipped++
			continue
		}

		if claimed.Attempts >= w.opts.AttemptLimit {
			w.logger.Warn("worker.attempts.exhausted",
				"job_id", claimed.ID, "attempts", claimed.Attempts, "limit", w.opts.AttemptLimit)
			if err := w.repo.MarkFailed(ctx, claimed.ID, "attempt limit reached"); err != nil {
				w.logger.Error("worker.mark_failed.failed", "job_id", claimed.ID, "err", err)
			}
			sum.Processed++
			sum.Failed++
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			w.logger.Warn("worker.run.interrupted", "err", err)
			break
		}
		sum.Processed++

		wg.Add(1)
		go func(job *entity.ReceiptJob) {
			defer wg.Done()
			defer sem.Release(1)

			ok := w.processOne(ctx, job)
			mu.Lock()
			if ok {
				sum.Succeeded++
			} else {
				sum.Failed++
			}
			mu.Unlock()
		}(claimed)
	}

	wg.Wait()

	w.logger.Info("worker.run.done",
		"requeued", sum.Requeued,
		"processed", sum.Processed,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sum, nil
}

func (w *Worker) processOne(ctx context.Context, job *entity.ReceiptJob) bool {
	result, err := w.process(ctx, job)
	if err != nil {
		w.logger.Warn("worker.process.failed", "job_id", job.ID, "attempts", job.Attempts, "err", err)
		if mErr := w.repo.MarkFailed(ctx, job.ID, err.Error()); mErr != nil {
			// Leave the job PROCESSING; the stale sweep recovers it.
			w.logger.Error("worker.mark_failed.failed", "job_id", job.ID, "err", mErr)
		}
		return false
	}

	if err := w.repo.MarkCompleted(ctx, job.ID, result); err != nil {
		w.logger.Error("worker.mark_completed.failed", "job_id", job.ID, "err", err)
		return false
	}
	return true
}
