package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyleaf/receiptpipe/constants"
	"github.com/tallyleaf/receiptpipe/internal/common"
	"github.com/tallyleaf/receiptpipe/internal/entity"
)

// ErrNotClaimed means another worker won the claim (or the job left
// PENDING some other way). Expected under contention; callers skip the
// job silently.
var ErrNotClaimed = errors.New("job not claimed")

// ErrInvalidTransition means a terminal write found the job outside
// PROCESSING; terminal states are never overwritten.
var ErrInvalidTransition = errors.New("invalid status transition")

// ReceiptJobRepository is the persistence boundary for the job state
// machine. Every mutation is a single conditional UPDATE so the contract
// holds across concurrent worker processes, not just goroutines.
type ReceiptJobRepository interface {
	Create(ctx context.Context, job *entity.ReceiptJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ReceiptJob, error)

	// RequeueStale moves every PROCESSING job whose claim is older than
	// staleAfter back to PENDING, bumping attempts and clearing the
	// claim. Idempotent: a requeued job is PENDING and no longer matches.
	RequeueStale(ctx context.Context, staleAfter time.Duration) ([]*entity.ReceiptJob, error)

	// FindPending returns up to limit PENDING jobs, oldest created first.
	FindPending(ctx context.Context, limit int) ([]*entity.ReceiptJob, error)

	// Claim atomically transitions one PENDING job to PROCESSING and
	// returns the claimed row. Returns ErrNotClaimed when the job is no
	// longer PENDING.
	Claim(ctx context.Context, id uuid.UUID) (*entity.ReceiptJob, error)

	MarkCompleted(ctx context.Context, id uuid.UUID, result *entity.ExtractionResult) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error

	// Discard permanently removes a job from processing and statistics.
	// Allowed from any state except COMPLETED; manual action only.
	Discard(ctx context.Context, id uuid.UUID) error
}

const jobColumns = `id, user_id, source_text, file_name, file_ext, status, attempts,
	claimed_at, last_error, extraction_confidence, extracted_fields, discarded_at,
	created_at, updated_at`

type receiptJobRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewReceiptJobRepository(pool *pgxpool.Pool, log *slog.Logger) ReceiptJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &receiptJobRepo{pool: pool, log: log}
}

func (r *receiptJobRepo) Create(ctx context.Context, job *entity.ReceiptJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = constants.JobStatusPending
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO receipt_jobs (id, user_id, source_text, file_name, file_ext, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		job.ID, job.UserID, job.SourceText, job.FileName, job.FileExt, string(job.Status))
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		r.log.Error("job create failed", "user_id", job.UserID, "err", err)
		return common.NewStorageError("create job", err)
	}
	r.log.Info("job created", "job_id", job.ID, "user_id", job.UserID)
	return nil
}

func (r *receiptJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ReceiptJob, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM receipt_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.NewStorageError("get job", err)
	}
	return job, nil
}

func (r *receiptJobRepo) RequeueStale(ctx context.Context, staleAfter time.Duration) ([]*entity.ReceiptJob, error) {
	cutoff := time.Now().UTC().Add(-staleAfter)
	rows, err := r.pool.Query(ctx, `
		UPDATE receipt_jobs
		SET status = $1, attempts = attempts + 1, claimed_at = NULL, updated_at = now()
		WHERE status = $2 AND claimed_at < $3
		RETURNING `+jobColumns,
		string(constants.JobStatusPending), string(constants.JobStatusProcessing), cutoff)
	if err != nil {
		r.log.Error("requeue stale failed", "err", err)
		return nil, common.NewStorageError("requeue stale jobs", err)
	}
	defer rows.Close()

	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, common.NewStorageError("requeue stale jobs", err)
	}
	if len(jobs) > 0 {
		r.log.Warn("stale jobs requeued", "count", len(jobs), "cutoff", cutoff)
	}
	return jobs, nil
}

func (r *receiptJobRepo) FindPending(ctx context.Context, limit int) ([]*entity.ReceiptJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM receipt_jobs
		WHERE status = $1 AND discarded_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2`,
		string(constants.JobStatusPending), limit)
	if err != nil {
		r.log.Error("find pending failed", "err", err)
		return nil, common.NewStorageError("find pending jobs", err)
	}
	defer rows.Close()

	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, common.NewStorageError("find pending jobs", err)
	}
	return jobs, nil
}

func (r *receiptJobRepo) Claim(ctx context.Context, id uuid.UUID) (*entity.ReceiptJob, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE receipt_jobs
		SET status = $1, claimed_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+jobColumns,
		string(constants.JobStatusProcessing), id, string(constants.JobStatusPending))
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another worker got here first; not an error.
			return nil, ErrNotClaimed
		}
		r.log.Error("claim failed", "job_id", id, "err", err)
		return nil, common.NewStorageError("claim job", err)
	}
	r.log.Debug("job claimed", "job_id", id, "attempts", job.Attempts)
	return job, nil
}

func (r *receiptJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, result *entity.ExtractionResult) error {
	fieldsJSON, err := json.Marshal(result.Fields)
	if err != nil {
		return fmt.Errorf("encode extracted fields: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE receipt_jobs
		SET status = $1, extracted_fields = $2, extraction_confidence = $3,
		    last_error = NULL, updated_at = now()
		WHERE id = $4 AND status = $5`,
		string(constants.JobStatusCompleted), fieldsJSON, result.Confidence,
		id, string(constants.JobStatusProcessing))
	if err != nil {
		r.log.Error("mark completed failed", "job_id", id, "err", err)
		return common.NewStorageError("mark job completed", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark completed: job %s: %w", id, ErrInvalidTransition)
	}
	r.log.Info("job completed", "job_id", id, "confidence", result.Confidence)
	return nil
}

func (r *receiptJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE receipt_jobs
		SET status = $1, last_error = $2, updated_at = now()
		WHERE id = $3 AND status = $4`,
		string(constants.JobStatusFailed), message,
		id, string(constants.JobStatusProcessing))
	if err != nil {
		r.log.Error("mark failed failed", "job_id", id, "err", err)
		return common.NewStorageError("mark job failed", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark failed: job %s: %w", id, ErrInvalidTransition)
	}
	r.log.Warn("job failed", "job_id", id, "error", message)
	return nil
}

func (r *receiptJobRepo) Discard(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE receipt_jobs
		SET status = $1, discarded_at = now(), updated_at = now()
		WHERE id = $2 AND status NOT IN ($3, $4)`,
		string(constants.JobStatusDiscarded), id,
		string(constants.JobStatusCompleted), string(constants.JobStatusDiscarded))
	if err != nil {
		r.log.Error("discard failed", "job_id", id, "err", err)
		return common.NewStorageError("discard job", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("discard: job %s: %w", id, ErrInvalidTransition)
	}
	r.log.Info("job discarded", "job_id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.ReceiptJob, error) {
	var (
		job       entity.ReceiptJob
		status    string
		fieldsRaw []byte
	)
	err := row.Scan(
		&job.ID, &job.UserID, &job.SourceText, &job.FileName, &job.FileExt,
		&status, &job.Attempts, &job.ClaimedAt, &job.LastError,
		&job.ExtractionConfidence, &fieldsRaw, &job.DiscardedAt,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = constants.JobStatus(status)
	if len(fieldsRaw) > 0 {
		var fields entity.ExtractedFields
		if err := json.Unmarshal(fieldsRaw, &fields); err != nil {
			return nil, fmt.Errorf("decode extracted fields: %w", err)
		}
		job.ExtractedFields = &fields
	}
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]*entity.ReceiptJob, error) {
	var jobs []*entity.ReceiptJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
