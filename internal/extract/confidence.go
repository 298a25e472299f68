package extract

import (
	"github.com/tallyleaf/receiptpipe/internal/entity"
)

// Confidence is a naive heuristic score for an extraction, based on which
// receipt artifacts were actually recovered from the text.
func Confidence(fields entity.ExtractedFields, text string) float32 {
	score := float32(0.2) // base
	if fields.Vendor != nil {
		score += 0.1
	}
	if fields.TotalAmount != nil {
		score += 0.25
	}
	if fields.TaxAmount != nil {
		score += 0.1
	}
	if fields.Date != nil {
		score += 0.2
	}
	if len(text) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
