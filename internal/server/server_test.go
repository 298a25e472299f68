package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyleaf/receiptpipe/constants"
	"github.com/tallyleaf/receiptpipe/internal/common"
	"github.com/tallyleaf/receiptpipe/internal/entity"
	"github.com/tallyleaf/receiptpipe/internal/export"
	"github.com/tallyleaf/receiptpipe/internal/repository"
	"github.com/tallyleaf/receiptpipe/internal/worker"
)

type memJobRepo struct {
	jobs map[uuid.UUID]*entity.ReceiptJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[uuid.UUID]*entity.ReceiptJob)}
}

func (m *memJobRepo) Create(ctx context.Context, job *entity.ReceiptJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ReceiptJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return job, nil
}

func (m *memJobRepo) RequeueStale(ctx context.Context, staleAfter time.Duration) ([]*entity.ReceiptJob, error) {
	return nil, nil
}

func (m *memJobRepo) FindPending(ctx context.Context, limit int) ([]*entity.ReceiptJob, error) {
	return nil, nil
}

func (m *memJobRepo) Claim(ctx context.Context, id uuid.UUID) (*entity.ReceiptJob, error) {
	return nil, repository.ErrNotClaimed
}

func (m *memJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, result *entity.ExtractionResult) error {
	return nil
}

func (m *memJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return nil
}

func (m *memJobRepo) Discard(ctx context.Context, id uuid.UUID) error {
	job, ok := m.jobs[id]
	if !ok || job.Status == constants.JobStatusCompleted || job.Status == constants.JobStatusDiscarded {
		return repository.ErrInvalidTransition
	}
	job.Status = constants.JobStatusDiscarded
	return nil
}

type memTxRepo struct{}

func (memTxRepo) UpsertFromExtraction(ctx context.Context, req *repository.UpsertTransactionRequest) (*entity.Transaction, error) {
	return &entity.Transaction{}, nil
}

func (memTxRepo) ListForUser(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]*entity.Transaction, error) {
	return nil, nil
}

type memStatsRepo struct{}

func (memStatsRepo) JobStats(ctx context.Context, userID uuid.UUID) (*entity.JobStats, error) {
	return &entity.JobStats{
		CountsByStatus: map[constants.JobStatus]int{constants.JobStatusCompleted: 2},
	}, nil
}

func testApp(repo *memJobRepo) *fiber.App {
	txRepo := memTxRepo{}
	wrk := worker.New(repo, func(ctx context.Context, job *entity.ReceiptJob) (*entity.ExtractionResult, error) {
		return &entity.ExtractionResult{}, nil
	}, worker.Options{}, nil)
	exporter := export.NewService(txRepo, nil)
	return New(repo, txRepo, memStatsRepo{}, exporter, wrk, nil).App()
}

func TestCreateJob(t *testing.T) {
	repo := newMemJobRepo()
	app := testApp(repo)

	body := `{"user_id":"` + uuid.New().String() + `","source_text":"Store\nTOTAL 5.00","file_name":"lunch.pdf"}`
	req := httptest.NewRequest("POST", "/v1/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "PENDING", out["status"])
	assert.NotEmpty(t, out["id"])
}

func TestCreateJob_Validation(t *testing.T) {
	app := testApp(newMemJobRepo())

	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"source_text":"x","file_name":"a.pdf"}`},
		{"missing text", `{"user_id":"` + uuid.New().String() + `","file_name":"a.pdf"}`},
		{"bad extension", `{"user_id":"` + uuid.New().String() + `","source_text":"x","file_name":"a.exe"}`},
		{"not json", `{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/jobs", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetJob_HidesInternals(t *testing.T) {
	repo := newMemJobRepo()
	app := testApp(repo)

	lastErr := "pgx: connection refused to 10.0.0.7"
	job := &entity.ReceiptJob{
		UserID:     uuid.New(),
		SourceText: "x",
		Status:     constants.JobStatusFailed,
		Attempts:   3,
		LastError:  &lastErr,
	}
	require.NoError(t, repo.Create(context.Background(), job))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/jobs/"+job.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, `"status":"FAILED"`)
	assert.Contains(t, body, `"failure_reason":"processing failed"`)
	assert.NotContains(t, body, "attempts")
	assert.NotContains(t, body, "10.0.0.7")
}

func TestGetJob_NotFound(t *testing.T) {
	app := testApp(newMemJobRepo())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/jobs/"+uuid.New().String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/jobs/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDiscardJob(t *testing.T) {
	repo := newMemJobRepo()
	app := testApp(repo)

	job := &entity.ReceiptJob{UserID: uuid.New(), Status: constants.JobStatusFailed}
	require.NoError(t, repo.Create(context.Background(), job))

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/jobs/"+job.ID.String()+"/discard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, constants.JobStatusDiscarded, repo.jobs[job.ID].Status)

	// Completed jobs cannot be discarded.
	done := &entity.ReceiptJob{UserID: uuid.New(), Status: constants.JobStatusCompleted}
	require.NoError(t, repo.Create(context.Background(), done))

	resp, err = app.Test(httptest.NewRequest("POST", "/v1/jobs/"+done.ID.String()+"/discard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestWorkerRunEndpoint(t *testing.T) {
	app := testApp(newMemJobRepo())

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/worker/run", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var sum worker.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Zero(t, sum.Processed)
}

func TestUserStats(t *testing.T) {
	app := testApp(newMemJobRepo())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/users/"+uuid.New().String()+"/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats entity.JobStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 2, stats.CountsByStatus[constants.JobStatusCompleted])
}

func TestUserExport(t *testing.T) {
	app := testApp(newMemJobRepo())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/users/"+uuid.New().String()+"/export", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/users/"+uuid.New().String()+"/export?from=2024-13-99", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	app := testApp(newMemJobRepo())

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
