package repository

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyleaf/receiptpipe/constants"
	"github.com/tallyleaf/receiptpipe/internal/common"
	"github.com/tallyleaf/receiptpipe/internal/entity"
)

// UpsertTransactionRequest carries everything needed to materialize a
// transaction from a completed extraction.
type UpsertTransactionRequest struct {
	JobID       uuid.UUID
	UserID      uuid.UUID
	Fields      entity.ExtractedFields
	StoragePath string
	DisplayName string
}

// TransactionRepository persists the financial records produced from
// completed extractions.
type TransactionRepository interface {
	// UpsertFromExtraction writes the transaction for a job, replacing
	// any earlier row for the same job (re-driven jobs stay idempotent).
	UpsertFromExtraction(ctx context.Context, req *UpsertTransactionRequest) (*entity.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]*entity.Transaction, error)
}

type transactionRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTransactionRepository(pool *pgxpool.Pool, log *slog.Logger) TransactionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &transactionRepo{pool: pool, log: log}
}

const txColumns = `id, job_id, user_id, vendor, tx_date, total_amount, tax_amount,
	category_code, description, storage_path, display_name, created_at, updated_at`

func (r *transactionRepo) UpsertFromExtraction(ctx context.Context, req *UpsertTransactionRequest) (*entity.Transaction, error) {
	vendor := ""
	if req.Fields.Vendor != nil {
		vendor = *req.Fields.Vendor
	}
	description := ""
	if req.Fields.Description != nil {
		description = *req.Fields.Description
	}
	category := string(constants.Other)
	if req.Fields.CategoryCode != nil && *req.Fields.CategoryCode != "" {
		category = *req.Fields.CategoryCode
	}
	var txDate *time.Time
	if req.Fields.Date != nil {
		if d, err := time.ParseInLocation("2006-01-02", *req.Fields.Date, time.UTC); err == nil {
			txDate = &d
		}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, job_id, user_id, vendor, tx_date, total_amount,
			tax_amount, category_code, description, storage_path, display_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id) DO UPDATE SET
			vendor = EXCLUDED.vendor,
			tx_date = EXCLUDED.tx_date,
			total_amount = EXCLUDED.total_amount,
			tax_amount = EXCLUDED.tax_amount,
			category_code = EXCLUDED.category_code,
			description = EXCLUDED.description,
			storage_path = EXCLUDED.storage_path,
			display_name = EXCLUDED.display_name,
			updated_at = now()
		RETURNING `+txColumns,
		uuid.New(), req.JobID, req.UserID, vendor, txDate, req.Fields.TotalAmount,
		req.Fields.TaxAmount, category, description, req.StoragePath, req.DisplayName)

	tx, err := scanTransaction(row)
	if err != nil {
		r.log.Error("transaction upsert failed", "job_id", req.JobID, "err", err)
		return nil, common.NewStorageError("upsert transaction", err)
	}
	r.log.Info("transaction upserted",
		"transaction_id", tx.ID, "job_id", req.JobID, "vendor", vendor, "category", category)
	return tx, nil
}

func (r *transactionRepo) ListForUser(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions t
		WHERE t.user_id = $1
		  AND EXISTS (
			SELECT 1 FROM receipt_jobs j
			WHERE j.id = t.job_id AND j.discarded_at IS NULL
		  )`
	args := []any{userID}
	if from != nil {
		args = append(args, *from)
		query += ` AND t.tx_date >= $` + strconv.Itoa(len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += ` AND t.tx_date <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY t.tx_date ASC NULLS LAST, t.created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("transaction list failed", "user_id", userID, "err", err)
		return nil, common.NewStorageError("list transactions", err)
	}
	defer rows.Close()

	var txs []*entity.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, common.NewStorageError("list transactions", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("list transactions", err)
	}
	return txs, nil
}

func scanTransaction(row rowScanner) (*entity.Transaction, error) {
	var tx entity.Transaction
	err := row.Scan(
		&tx.ID, &tx.JobID, &tx.UserID, &tx.Vendor, &tx.TxDate,
		&tx.TotalAmount, &tx.TaxAmount, &tx.CategoryCode, &tx.Description,
		&tx.StoragePath, &tx.DisplayName, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}
