package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-rag-backend/models"
)

func TestNewIngestTaskCarriesOnlyJobID(t *testing.T) {
	task, err := NewIngestTask("job-123")
	require.NoError(t, err)

	assert.Equal(t, TaskIngestDocuments, task.Type())

	var payload IngestPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "job-123", payload.JobID)
}

// fakeJobStore records lifecycle transitions instead of touching Mongo.
type fakeJobStore struct {
	job    *models.IngestJob
	getErr error

	docs    []models.Document
	docsErr error

	processing []string
	completed  map[string]int
	failed     map[string]string
}

func (f *fakeJobStore) Get(ctx context.Context, id string) (*models.IngestJob, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.job, nil
}

func (f *fakeJobStore) Documents(job *models.IngestJob) ([]models.Document, error) {
	if f.docsErr != nil {
		return nil, f.docsErr
	}
	return f.docs, nil
}

func (f *fakeJobStore) MarkProcessing(ctx context.Context, id string) error {
	f.processing = append(f.processing, id)
	return nil
}

func (f *fakeJobStore) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	if f.completed == nil {
		f.completed = make(map[string]int)
	}
	f.completed[id] = chunkCount
	return nil
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, id, message string) error {
	if f.failed == nil {
		f.failed = make(map[string]string)
	}
	f.failed[id] = message
	return nil
}

// fakeIngester returns a scripted chunk count or error.
type fakeIngester struct {
	chunks int
	err    error
	calls  int
}

func (f *fakeIngester) Ingest(ctx context.Context, docs []models.Document) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.chunks, nil
}

func ingestTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()
	task, err := NewIngestTask(jobID)
	require.NoError(t, err)
	return task
}

func TestProcessIngestCompletesJob(t *testing.T) {
	store := &fakeJobStore{
		job:  &models.IngestJob{ID: "job-1", Status: models.JobStatusPending},
		docs: []models.Document{{ID: "doc-1", Content: "hello"}},
	}
	ingester := &fakeIngester{chunks: 7}
	p := NewTaskProcessor(store, ingester, nil)

	err := p.ProcessIngest(context.Background(), ingestTask(t, "job-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"job-1"}, store.processing, "job moves to processing before the pipeline runs")
	assert.Equal(t, map[string]int{"job-1": 7}, store.completed)
	assert.Empty(t, store.failed)
	assert.Equal(t, 1, ingester.calls)
}

func TestProcessIngestMalformedPayloadNotRetried(t *testing.T) {
	p := NewTaskProcessor(&fakeJobStore{}, &fakeIngester{}, nil)

	err := p.ProcessIngest(context.Background(), asynq.NewTask(TaskIngestDocuments, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry, "a payload that cannot parse will never parse")
}

func TestProcessIngestMissingJobIsRetryable(t *testing.T) {
	store := &fakeJobStore{getErr: errors.New("not found")}
	p := NewTaskProcessor(store, &fakeIngester{}, nil)

	err := p.ProcessIngest(context.Background(), ingestTask(t, "job-1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "the job record may simply not be visible yet")
	assert.Empty(t, store.failed)
}

func TestProcessIngestSkipsTerminalJob(t *testing.T) {
	for _, status := range []string{models.JobStatusCompleted, models.JobStatusFailed} {
		store := &fakeJobStore{job: &models.IngestJob{ID: "job-1", Status: status}}
		ingester := &fakeIngester{}
		p := NewTaskProcessor(store, ingester, nil)

		err := p.ProcessIngest(context.Background(), ingestTask(t, "job-1"))
		require.NoError(t, err, "status %s", status)
		assert.Zero(t, ingester.calls, "a finished job must not be re-ingested")
		assert.Empty(t, store.processing)
	}
}

func TestProcessIngestUnreadableDocumentsFailJob(t *testing.T) {
	store := &fakeJobStore{
		job:     &models.IngestJob{ID: "job-1", Status: models.JobStatusPending},
		docsErr: errors.New("gzip: invalid header"),
	}
	ingester := &fakeIngester{}
	p := NewTaskProcessor(store, ingester, nil)

	err := p.ProcessIngest(context.Background(), ingestTask(t, "job-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry, "corrupt staged content cannot recover on retry")
	assert.Equal(t, "gzip: invalid header", store.failed["job-1"])
	assert.Zero(t, ingester.calls)
}

func TestProcessIngestPipelineErrorFailsJob(t *testing.T) {
	store := &fakeJobStore{
		job:  &models.IngestJob{ID: "job-1", Status: models.JobStatusPending},
		docs: []models.Document{{ID: "doc-1", Content: "hello"}},
	}
	ingester := &fakeIngester{err: errors.New("index unavailable")}
	p := NewTaskProcessor(store, ingester, nil)

	err := p.ProcessIngest(context.Background(), ingestTask(t, "job-1"))
	require.Error(t, err)
	assert.Equal(t, "index unavailable", store.failed["job-1"])
	assert.Empty(t, store.completed)
}
