package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyleaf/receiptpipe/constants"
	"github.com/tallyleaf/receiptpipe/internal/common"
	"github.com/tallyleaf/receiptpipe/internal/entity"
)

// StatsRepository serves the dashboard aggregates. Every query here
// filters discarded_at IS NULL: discarded jobs are kept for audit but
// must never reach a statistic.
type StatsRepository interface {
	JobStats(ctx context.Context, userID uuid.UUID) (*entity.JobStats, error)
}

type statsRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewStatsRepository(pool *pgxpool.Pool, log *slog.Logger) StatsRepository {
	if log == nil {
		log = slog.Default()
	}
	return &statsRepo{pool: pool, log: log}
}

func (r *statsRepo) JobStats(ctx context.Context, userID uuid.UUID) (*entity.JobStats, error) {
	stats := &entity.JobStats{
		CountsByStatus: make(map[constants.JobStatus]int),
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM receipt_jobs
		WHERE user_id = $1 AND discarded_at IS NULL
		GROUP BY status`, userID)
	if err != nil {
		r.log.Error("stats counts failed", "user_id", userID, "err", err)
		return nil, common.NewStorageError("job status counts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, common.NewStorageError("job status counts", err)
		}
		stats.CountsByStatus[constants.JobStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("job status counts", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT AVG(extraction_confidence)
		FROM receipt_jobs
		WHERE user_id = $1 AND status = $2 AND discarded_at IS NULL`,
		userID, string(constants.JobStatusCompleted)).Scan(&stats.AvgConfidence)
	if err != nil {
		r.log.Error("stats confidence failed", "user_id", userID, "err", err)
		return nil, common.NewStorageError("average confidence", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(t.total_amount), 0), COALESCE(SUM(t.tax_amount), 0)
		FROM transactions t
		JOIN receipt_jobs j ON j.id = t.job_id
		WHERE t.user_id = $1 AND j.discarded_at IS NULL`,
		userID).Scan(&stats.TotalSpent, &stats.TotalTax)
	if err != nil {
		r.log.Error("stats totals failed", "user_id", userID, "err", err)
		return nil, common.NewStorageError("transaction totals", err)
	}

	return stats, nil
}
