package entity

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is the financial record produced from a completed extraction.
// Exactly one transaction exists per job (upsert keyed on JobID).
type Transaction struct {
	ID           uuid.UUID  `json:"id"`
	JobID        uuid.UUID  `json:"job_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Vendor       string     `json:"vendor"`
	TxDate       *time.Time `json:"tx_date,omitempty"`
	TotalAmount  *float64   `json:"total_amount,omitempty"`
	TaxAmount    *float64   `json:"tax_amount,omitempty"`
	CategoryCode string     `json:"category_code"`
	Description  string     `json:"description,omitempty"`
	StoragePath  string     `json:"storage_path,omitempty"`
	DisplayName  string     `json:"display_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
