package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallyleaf/receiptpipe/internal/llm"
)

// Client implements llm.FieldExtractor against an OpenAI-compatible
// text-only chat/completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.ReceiptGuess, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.ReceiptText),
		"allowed_categories", len(req.AllowedCategories),
	)

	schema := llm.BuildReceiptJSONSchema(req.AllowedCategories)
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt(req)},
			{"role": "user", "content": buildUserPrompt(req.ReceiptText, req.FilenameHint) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, httpErr := c.post(ctx, endpoint, body)
	if httpErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ReceiptGuess{}, nil, httpErr
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return llm.ReceiptGuess{}, raw, fmt.Errorf("decode provider response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return llm.ReceiptGuess{}, raw, fmt.Errorf("no choices in provider response")
	}
	rawContent := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	// Validate strictly first.
	if err := llm.ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		if !c.cfg.LenientOptional {
			c.log.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", err, "content", string(rawContent),
			)
			return llm.ReceiptGuess{}, rawContent, fmt.Errorf("schema validation failed: %w", err)
		}
		// Lenient path: drop/normalize offenders and re-validate.
		cleaned, dropped, sErr := llm.SanitizeGuessJSON(rawContent, c.log)
		if sErr != nil {
			return llm.ReceiptGuess{}, rawContent, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return llm.ReceiptGuess{}, rawContent, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.log.Warn("llm.extract.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
		rawContent = cleaned
	}

	var out llm.ReceiptGuess
	if err := json.Unmarshal(rawContent, &out); err != nil {
		return llm.ReceiptGuess{}, rawContent, fmt.Errorf("unmarshal guess: %w", err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"vendor", out.Vendor,
		"date", out.TxDate,
		"total", out.Total,
		"category", out.Category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.log.Warn("provider response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func buildSystemPrompt(req llm.ExtractRequest) string {
	var catLine string
	if len(req.AllowedCategories) > 0 {
		catLine = "Allowed categories (enum): " + strings.Join(req.AllowedCategories, ", ") + ". "
	} else {
		catLine = "Category must be a short, sensible label if present. "
	}
	parts := []string{
		"You are a receipts parser. Return ONLY JSON that matches the JSON Schema provided.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		catLine,
		"For 'description', write a few words naming the items or service purchased. Avoid addresses, timestamps, names.",
		"Put sales tax in 'tax' and the grand total in 'total'.",
		"Never output null. If a field is not present, omit it.",
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(text, filename string) string {
	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(filename)
	b.WriteString("\n\nReceipt text (first ~3k chars):\n")
	if len(text) > 3000 {
		b.WriteString(text[:3000])
	} else {
		b.WriteString(text)
	}
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
