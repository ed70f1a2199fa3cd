package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/telemetry"
	"transcript-rag-backend/models"
)

const (
	TaskIngestDocuments = "ingest:process"
)

// IngestPayload carries only the job id; the staged documents live in the
// job record so the broker never sees transcript content.
type IngestPayload struct {
	JobID string `json:"job_id"`
}

// NewIngestTask builds the asynq task for one ingest job.
func NewIngestTask(jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocuments,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(60*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// JobStore is the job-record surface the processor needs. Satisfied by
// *services.JobStore; faked in tests.
type JobStore interface {
	Get(ctx context.Context, id string) (*models.IngestJob, error)
	Documents(job *models.IngestJob) ([]models.Document, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, chunkCount int) error
	MarkFailed(ctx context.Context, id, message string) error
}

// Ingester runs staged documents through the indexing pipeline. Satisfied by
// *services.Indexer.
type Ingester interface {
	Ingest(ctx context.Context, docs []models.Document) (int, error)
}

// TaskProcessor executes queued ingest jobs.
type TaskProcessor struct {
	jobs    JobStore
	indexer Ingester
	metrics *telemetry.Metrics
}

// NewTaskProcessor wires the processor.
func NewTaskProcessor(jobs JobStore, indexer Ingester, metrics *telemetry.Metrics) *TaskProcessor {
	return &TaskProcessor{jobs: jobs, indexer: indexer, metrics: metrics}
}

// ProcessIngest runs one ingest job end to end: load the staged documents,
// run them through the pipeline, record the result. Failures after the job
// is marked processing are recorded on the job rather than retried — the
// pipeline already skips per-document and per-batch errors internally, and
// re-running is safe at any time thanks to idempotent vector ids.
func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing ingest job", "jobID", payload.JobID)
	start := time.Now()

	job, err := p.jobs.Get(ctx, payload.JobID)
	if err != nil {
		return err // job record may not be visible yet; let asynq retry
	}
	if job.Terminal() {
		logger.Warn("Ingest job already finished, skipping", "jobID", job.ID, "status", job.Status)
		return nil
	}

	docs, err := p.jobs.Documents(job)
	if err != nil {
		p.jobs.MarkFailed(ctx, job.ID, err.Error())
		return fmt.Errorf("staged documents unreadable: %w", asynq.SkipRetry)
	}

	if err := p.jobs.MarkProcessing(ctx, job.ID); err != nil {
		return err
	}

	chunks, err := p.indexer.Ingest(ctx, docs)
	if err != nil {
		p.jobs.MarkFailed(ctx, job.ID, err.Error())
		return err
	}

	if err := p.jobs.MarkCompleted(ctx, job.ID, chunks); err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.IngestDuration.Record(ctx, time.Since(start).Seconds())
	}
	logger.Info("Ingest job completed", "jobID", job.ID,
		"documents", len(docs), "chunks", chunks, "duration", time.Since(start).String())
	return nil
}
