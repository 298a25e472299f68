package llm

// BuildReceiptJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass this to the provider as a structured output
// constraint and also use it locally to validate the response.
func BuildReceiptJSONSchema(allowedCategories []string) map[string]any {
	props := map[string]any{
		"vendor":      map[string]any{"type": "string", "minLength": 1},
		"tx_date":     map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"tax":         decimalProp(),
		"total":       decimalProp(),
		"category":    map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"confidence":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}

	// Constrain category if a taxonomy is provided.
	if len(allowedCategories) > 0 {
		props["category"] = map[string]any{
			"type": "string",
			"enum": allowedCategories,
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{},
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,2})?$`,
	}
}
