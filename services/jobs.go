package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"transcript-rag-backend/models"
	"transcript-rag-backend/utils"
)

// JobStore persists ingest jobs and their staged documents in MongoDB. The
// HTTP layer creates a job and returns its id; the worker drives the status
// transitions.
type JobStore struct {
	collection *mongo.Collection
}

// NewJobStore creates the store over the ingest_jobs collection.
func NewJobStore(db *mongo.Database) *JobStore {
	return &JobStore{collection: db.Collection("ingest_jobs")}
}

// Create stages the documents (content compressed) and inserts a pending
// job.
func (s *JobStore) Create(ctx context.Context, docs []models.Document) (*models.IngestJob, error) {
	staged := make([]models.StagedDocument, 0, len(docs))
	for _, doc := range docs {
		content, algorithm, err := utils.CompressText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to stage document %s: %w", doc.ID, err)
		}
		staged = append(staged, models.StagedDocument{
			ID:          doc.ID,
			Name:        doc.Name,
			Type:        doc.Type,
			Content:     content,
			Compression: string(algorithm),
			RawSize:     len(doc.Content),
		})
	}

	counts := make(map[string]int)
	for docType, n := range models.CountByType(docs) {
		counts[string(docType)] = n
	}

	job := &models.IngestJob{
		ID:             uuid.NewString(),
		Status:         models.JobStatusPending,
		Documents:      staged,
		DocumentCounts: counts,
		TotalDocuments: len(docs),
		EnqueuedAt:     time.Now().UTC(),
	}

	if _, err := s.collection.InsertOne(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to insert ingest job: %w", err)
	}
	return job, nil
}

// Get returns one job by id.
func (s *JobStore) Get(ctx context.Context, id string) (*models.IngestJob, error) {
	var job models.IngestJob
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("ingest job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ingest job %s: %w", id, err)
	}
	return &job, nil
}

// Documents restores the staged documents of a job.
func (s *JobStore) Documents(job *models.IngestJob) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(job.Documents))
	for _, staged := range job.Documents {
		content, err := utils.DecompressText(staged.Content, utils.CompressionAlgorithm(staged.Compression))
		if err != nil {
			return nil, fmt.Errorf("failed to restore document %s: %w", staged.ID, err)
		}
		docs = append(docs, models.Document{
			ID:      staged.ID,
			Name:    staged.Name,
			Content: content,
			Type:    staged.Type,
		})
	}
	return docs, nil
}

// MarkProcessing transitions a job to processing.
func (s *JobStore) MarkProcessing(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{
		"$set": bson.M{
			"status":     models.JobStatusProcessing,
			"started_at": time.Now().UTC(),
		},
	})
}

// MarkCompleted records the final chunk count and drops the staged content.
func (s *JobStore) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	return s.update(ctx, id, bson.M{
		"$set": bson.M{
			"status":       models.JobStatusCompleted,
			"chunk_count":  chunkCount,
			"completed_at": time.Now().UTC(),
		},
		"$unset": bson.M{"documents": ""},
	})
}

// MarkFailed records the failure and drops the staged content.
func (s *JobStore) MarkFailed(ctx context.Context, id, message string) error {
	return s.update(ctx, id, bson.M{
		"$set": bson.M{
			"status":        models.JobStatusFailed,
			"error_message": message,
			"completed_at":  time.Now().UTC(),
		},
		"$unset": bson.M{"documents": ""},
	})
}

// FailStale marks jobs stuck in processing beyond the deadline as failed
// and returns how many it swept.
func (s *JobStore) FailStale(ctx context.Context, deadline time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-deadline)
	result, err := s.collection.UpdateMany(ctx,
		bson.M{
			"status":     models.JobStatusProcessing,
			"started_at": bson.M{"$lt": cutoff},
		},
		bson.M{
			"$set": bson.M{
				"status":        models.JobStatusFailed,
				"error_message": "processing deadline exceeded",
				"completed_at":  time.Now().UTC(),
			},
			"$unset": bson.M{"documents": ""},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale jobs: %w", err)
	}
	return int(result.ModifiedCount), nil
}

func (s *JobStore) update(ctx context.Context, id string, update bson.M) error {
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update ingest job %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("ingest job %s not found", id)
	}
	return nil
}
