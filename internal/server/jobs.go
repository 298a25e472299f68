package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tallyleaf/receiptpipe/constants"
	"github.com/tallyleaf/receiptpipe/internal/common"
	"github.com/tallyleaf/receiptpipe/internal/entity"
	"github.com/tallyleaf/receiptpipe/internal/repository"
)

type createJobRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid4"`
	SourceText string `json:"source_text" validate:"required"`
	FileName   string `json:"file_name" validate:"required,max=255"`
}

type jobResponse struct {
	ID            uuid.UUID               `json:"id"`
	Status        constants.JobStatus     `json:"status"`
	FailureReason string                  `json:"failure_reason,omitempty"`
	Confidence    *float32                `json:"extraction_confidence,omitempty"`
	Fields        *entity.ExtractedFields `json:"extracted_fields,omitempty"`
	CreatedAt     string                  `json:"created_at"`
	UpdatedAt     string                  `json:"updated_at"`
}

// toJobResponse shapes a job for clients. Internal bookkeeping (attempts,
// claim timestamps, raw error strings) stays internal; a FAILED job shows
// a generic reason only.
func toJobResponse(job *entity.ReceiptJob) jobResponse {
	resp := jobResponse{
		ID:        job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: job.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	switch job.Status {
	case constants.JobStatusFailed:
		resp.FailureReason = "processing failed"
	case constants.JobStatusCompleted:
		resp.Confidence = job.ExtractionConfidence
		resp.Fields = job.ExtractedFields
	}
	return resp
}

func (s *Server) createJob(c *fiber.Ctx) error {
	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
	}
	name, ext := splitExt(req.FileName)
	if !constants.AllowedExt(ext) {
		return fiber.NewError(fiber.StatusBadRequest, "unsupported file extension")
	}

	job := &entity.ReceiptJob{
		UserID:     userID,
		SourceText: req.SourceText,
		FileName:   name,
		FileExt:    ext,
		Status:     constants.JobStatusPending,
	}
	if err := s.jobs.Create(c.Context(), job); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create job")
	}
	s.logger.Info("http.job.created", "job_id", job.ID, "user_id", userID)
	return c.Status(fiber.StatusCreated).JSON(toJobResponse(job))
}

func (s *Server) getJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	job, err := s.jobs.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "job not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not load job")
	}
	return c.JSON(toJobResponse(job))
}

func (s *Server) discardJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	if err := s.jobs.Discard(c.Context(), id); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return fiber.NewError(fiber.StatusConflict, "job cannot be discarded")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not discard job")
	}
	return c.JSON(fiber.Map{"id": id, "status": string(constants.JobStatusDiscarded)})
}

func (s *Server) runWorker(c *fiber.Ctx) error {
	sum, err := s.worker.Run(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "worker run failed")
	}
	return c.JSON(sum)
}
