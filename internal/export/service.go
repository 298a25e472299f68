// Package export renders a user's transactions as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/tallyleaf/receiptpipe/internal/repository"
)

// Service is a tiny façade over the transaction repository that produces
// XLSX bytes for exports.
type Service struct {
	txRepo repository.TransactionRepository
	logger *slog.Logger
}

func NewService(txRepo repository.TransactionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{txRepo: txRepo, logger: logger}
}

// ExportTransactionsXLSX returns an XLSX workbook (as bytes) for the given
// user and date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all transactions for the user.
func (s *Service) ExportTransactionsXLSX(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	txs, err := s.txRepo.ListForUser(ctx, userID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Transactions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Transaction Date",
		"Expense Category",
		"Vendor",
		"Amount",
		"Tax",
		"Purpose/Notes",
		"Receipt Path",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, tx := range txs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if tx.TxDate != nil {
			write(1, tx.TxDate.Format("2006-01-02"))
		} else {
			write(1, "")
		}
		write(2, tx.CategoryCode)

		vendor := tx.Vendor
		if vendor == "" {
			vendor = "Unknown"
		}
		write(3, vendor)

		if tx.TotalAmount != nil {
			write(4, *tx.TotalAmount)
		} else {
			write(4, "")
		}
		if tx.TaxAmount != nil {
			write(5, *tx.TaxAmount)
		} else {
			write(5, "")
		}

		write(6, truncate(tx.Description, 140))
		write(7, tx.StoragePath)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "B", 22) // category
	_ = f.SetColWidth(sheet, "C", "C", 28) // vendor
	_ = f.SetColWidth(sheet, "D", "E", 14) // amounts
	_ = f.SetColWidth(sheet, "F", "F", 48) // notes
	_ = f.SetColWidth(sheet, "G", "G", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID.String(),
		"rows", len(txs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
