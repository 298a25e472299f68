package llm

import "context"

// ReceiptGuess is the provider's best-effort structured read of a receipt.
// It is advisory only: the heuristic text extractor remains the
// authoritative structuring step, and a guess may only fill fields the
// extractor left empty.
type ReceiptGuess struct {
	Vendor          string  `json:"vendor,omitempty"`
	TxDate          string  `json:"tx_date,omitempty"` // YYYY-MM-DD
	Tax             string  `json:"tax,omitempty"`     // decimal
	Total           string  `json:"total,omitempty"`   // decimal
	Category        string  `json:"category,omitempty"`
	Description     string  `json:"description,omitempty"`
	ModelConfidence float32 `json:"confidence,omitempty"` // optional (0..1)
}

type ExtractRequest struct {
	ReceiptText       string
	FilenameHint      string
	AllowedCategories []string
}

// FieldExtractor is the interface the processor depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (ReceiptGuess, []byte /*rawJSON*/, error)
}
