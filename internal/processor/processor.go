// Package processor supplies the default ProcessFunc: heuristic text
// extraction, optionally enriched by the LLM provider, materialized into
// a transaction with a canonical storage path.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tallyleaf/receiptpipe/constants"
	"github.com/tallyleaf/receiptpipe/internal/entity"
	"github.com/tallyleaf/receiptpipe/internal/extract"
	"github.com/tallyleaf/receiptpipe/internal/llm"
	"github.com/tallyleaf/receiptpipe/internal/naming"
	"github.com/tallyleaf/receiptpipe/internal/ratelimit"
	"github.com/tallyleaf/receiptpipe/internal/repository"
)

type Processor struct {
	logger       *slog.Logger
	llmExtractor llm.FieldExtractor // nil disables provider enrichment
	limiter      ratelimit.Limiter
	limitPolicy  ratelimit.Policy
	txRepo       repository.TransactionRepository
}

func New(
	logger *slog.Logger,
	llmExtractor llm.FieldExtractor,
	limiter ratelimit.Limiter,
	limitPolicy ratelimit.Policy,
	txRepo repository.TransactionRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:       logger,
		llmExtractor: llmExtractor,
		limiter:      limiter,
		limitPolicy:  limitPolicy,
		txRepo:       txRepo,
	}
}

// Process extracts structured fields from one claimed job. The heuristic
// parser is authoritative; a provider guess only fills fields it left
// empty. An all-null extraction is a successful outcome; only a job with
// no text at all, or a failed transaction write, fails the attempt.
func (p *Processor) Process(ctx context.Context, job *entity.ReceiptJob) (*entity.ExtractionResult, error) {
	text := extract.Normalize(job.SourceText)
	if text == "" {
		return nil, fmt.Errorf("job %s has no source text", job.ID)
	}

	fields := extract.Parse(text)

	if p.llmExtractor != nil {
		p.enrich(ctx, job, &fields)
	}

	confidence := extract.Confidence(fields, text)

	var txDate *time.Time
	if fields.Date != nil {
		if d, err := time.ParseInLocation("2006-01-02", *fields.Date, time.UTC); err == nil {
			txDate = &d
		}
	}
	category := ""
	if fields.CategoryCode != nil {
		category = *fields.CategoryCode
	}
	vendor := ""
	if fields.Vendor != nil {
		vendor = *fields.Vendor
	}
	description := ""
	if fields.Description != nil {
		description = *fields.Description
	}

	displayName := naming.BuildDisplayFilename(txDate, vendor, description, job.FileExt)
	storagePath := naming.BuildStoragePath(job.UserID.String(), category, displayName)

	if p.txRepo != nil {
		_, err := p.txRepo.UpsertFromExtraction(ctx, &repository.UpsertTransactionRequest{
			JobID:       job.ID,
			UserID:      job.UserID,
			Fields:      fields,
			StoragePath: storagePath,
			DisplayName: displayName,
		})
		if err != nil {
			return nil, fmt.Errorf("materialize transaction: %w", err)
		}
	}

	p.logger.Debug("processor.extract.ok",
		"job_id", job.ID,
		"vendor", vendor,
		"confidence", confidence,
		"storage_path", storagePath,
	)
	return &entity.ExtractionResult{
		Fields:      fields,
		Confidence:  confidence,
		DisplayName: displayName,
		StoragePath: storagePath,
	}, nil
}

// enrich asks the provider for a structured guess and merges it into the
// null gaps of the heuristic result. Provider trouble (rate limit, HTTP
// failure, schema mismatch) degrades to heuristic-only extraction.
func (p *Processor) enrich(ctx context.Context, job *entity.ReceiptJob, fields *entity.ExtractedFields) {
	if p.limiter != nil {
		dec, err := p.limiter.Check(ctx, "llm:"+job.UserID.String(), p.limitPolicy)
		if err != nil {
			p.logger.Warn("processor.ratelimit.check_failed", "job_id", job.ID, "err", err)
			return
		}
		if !dec.Allowed {
			p.logger.Warn("processor.ratelimit.denied",
				"job_id", job.ID, "user_id", job.UserID, "retry_after", dec.RetryAfter)
			return
		}
	}

	guess, _, err := p.llmExtractor.ExtractFields(ctx, llm.ExtractRequest{
		ReceiptText:       job.SourceText,
		FilenameHint:      job.FileName,
		AllowedCategories: constants.AsStringSlice(),
	})
	if err != nil {
		p.logger.Warn("processor.llm.failed", "job_id", job.ID, "err", err)
		return
	}

	mergeGuess(fields, guess)
}

// mergeGuess fills only the fields the heuristic parser left null; the
// parser stays authoritative. Category has no heuristic source, so the
// canonicalized guess always supplies it.
func mergeGuess(fields *entity.ExtractedFields, guess llm.ReceiptGuess) {
	if fields.Vendor == nil && guess.Vendor != "" {
		v := guess.Vendor
		fields.Vendor = &v
	}
	if fields.TotalAmount == nil && guess.Total != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(guess.Total), 64); err == nil {
			fields.TotalAmount = &f
		}
	}
	if fields.TaxAmount == nil && guess.Tax != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(guess.Tax), 64); err == nil {
			fields.TaxAmount = &f
		}
	}
	if fields.Date == nil && guess.TxDate != "" {
		if _, err := time.Parse("2006-01-02", guess.TxDate); err == nil {
			d := guess.TxDate
			fields.Date = &d
		}
	}
	if fields.Description == nil && guess.Description != "" {
		d := guess.Description
		fields.Description = &d
	}
	if guess.Category != "" {
		cat, _ := constants.Canonicalize(guess.Category)
		c := string(cat)
		fields.CategoryCode = &c
	}
}
