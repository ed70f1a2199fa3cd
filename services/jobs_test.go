package services

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"transcript-rag-backend/models"
)

// Requires a running MongoDB; set TEST_MONGO_URI to enable.
func testJobStore(t *testing.T) *JobStore {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	db := client.Database("transcript_rag_test_" + uuid.NewString()[:8])
	t.Cleanup(func() { db.Drop(context.Background()) })

	return NewJobStore(db)
}

func TestJobLifecycle(t *testing.T) {
	store := testJobStore(t)
	ctx := context.Background()

	docs := []models.Document{
		{ID: "doc-1", Name: "Call one", Content: strings.Repeat("transcript ", 100), Type: models.TypeTranscript},
		{ID: "doc-2", Name: "Sim one", Content: "short", Type: models.TypeSimulation},
	}

	job, err := store.Create(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 2, job.TotalDocuments)
	assert.Equal(t, map[string]int{"transcript": 1, "simulation": 1}, job.DocumentCounts)

	loaded, err := store.Get(ctx, job.ID)
	require.NoError(t, err)

	restored, err := store.Documents(loaded)
	require.NoError(t, err)
	require.Len(t, restored, 2)
	assert.Equal(t, docs[0].Content, restored[0].Content, "staged content must survive compression")
	assert.Equal(t, docs[1].Content, restored[1].Content)

	require.NoError(t, store.MarkProcessing(ctx, job.ID))
	loaded, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, loaded.Status)
	assert.NotNil(t, loaded.StartedAt)
	assert.False(t, loaded.Terminal())

	require.NoError(t, store.MarkCompleted(ctx, job.ID, 42))
	loaded, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, loaded.Status)
	assert.Equal(t, 42, loaded.ChunkCount)
	assert.Empty(t, loaded.Documents, "staged content is dropped on completion")
	assert.True(t, loaded.Terminal())
}

func TestJobMarkFailed(t *testing.T) {
	store := testJobStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, []models.Document{{ID: "doc-1", Name: "n", Content: "c", Type: models.TypeGeneral}})
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, job.ID, "boom"))
	loaded, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, loaded.Status)
	assert.Equal(t, "boom", loaded.ErrorMessage)
	assert.True(t, loaded.Terminal())
}

func TestJobUpdateMissingID(t *testing.T) {
	store := testJobStore(t)
	err := store.MarkProcessing(context.Background(), "missing-id")
	require.Error(t, err)
}

func TestFailStaleSweepsOldProcessingJobs(t *testing.T) {
	store := testJobStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, []models.Document{{ID: "doc-1", Name: "n", Content: "c", Type: models.TypeGeneral}})
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessing(ctx, job.ID))

	// A freshly started job is not stale.
	swept, err := store.FailStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, swept)

	// With a zero deadline everything processing is overdue.
	time.Sleep(10 * time.Millisecond)
	swept, err = store.FailStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	loaded, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, loaded.Status)
}
