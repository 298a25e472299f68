package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/tallyleaf/receiptpipe/constants"
)

// ReceiptJob is one unit of receipt-processing work. Rows move along
// PENDING -> PROCESSING -> {COMPLETED, FAILED}, with PROCESSING -> PENDING
// reserved for the stale-requeue sweep and DISCARDED reachable from any
// non-completed state by manual action.
type ReceiptJob struct {
	ID                   uuid.UUID           `json:"id"`
	UserID               uuid.UUID           `json:"user_id"`
	SourceText           string              `json:"source_text,omitempty"`
	FileName             string              `json:"file_name,omitempty"`
	FileExt              string              `json:"file_ext,omitempty"`
	Status               constants.JobStatus `json:"status"`
	Attempts             int                 `json:"attempts"`
	ClaimedAt            *time.Time          `json:"claimed_at,omitempty"`
	LastError            *string             `json:"last_error,omitempty"`
	ExtractionConfidence *float32            `json:"extraction_confidence,omitempty"`
	ExtractedFields      *ExtractedFields    `json:"extracted_fields,omitempty"`
	DiscardedAt          *time.Time          `json:"discarded_at,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ExtractedFields is the structured result of parsing receipt text.
// Every field is independently nullable; an all-null value is a valid
// extraction outcome, not an error.
type ExtractedFields struct {
	Vendor       *string  `json:"vendor,omitempty"`
	TotalAmount  *float64 `json:"total_amount,omitempty"`
	TaxAmount    *float64 `json:"tax_amount,omitempty"`
	Date         *string  `json:"date,omitempty"` // YYYY-MM-DD
	Description  *string  `json:"description,omitempty"`
	CategoryCode *string  `json:"category_code,omitempty"`
}

// ExtractionResult is what a processing function hands back to the worker
// for a successful run; it is persisted on markCompleted.
type ExtractionResult struct {
	Fields      ExtractedFields `json:"fields"`
	Confidence  float32         `json:"confidence"`
	DisplayName string          `json:"display_name,omitempty"`
	StoragePath string          `json:"storage_path,omitempty"`
}

// JobStats is the aggregate view consumed by dashboards. Discarded jobs
// are excluded from every number here.
type JobStats struct {
	CountsByStatus map[constants.JobStatus]int `json:"counts_by_status"`
	AvgConfidence  *float32                    `json:"avg_confidence,omitempty"`
	TotalSpent     float64                     `json:"total_spent"`
	TotalTax       float64                     `json:"total_tax"`
}
