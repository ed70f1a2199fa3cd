package models

import (
	"time"
)

// Ingest job lifecycle. A job is created when the process endpoint accepts a
// request and moves to a terminal state when the worker finishes.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// StagedDocument is a document captured at enqueue time. Content is stored
// compressed so large transcript batches stay well under the Mongo document
// cap.
type StagedDocument struct {
	ID          string       `bson:"id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Type        DocumentType `bson:"type" json:"type"`
	Content     []byte       `bson:"content" json:"-"`
	Compression string       `bson:"compression" json:"-"`
	RawSize     int          `bson:"raw_size" json:"raw_size"`
}

// IngestJob records one asynchronous ingestion run. The HTTP layer returns
// its ID immediately; the worker updates status and the final chunk count.
type IngestJob struct {
	ID             string           `bson:"_id" json:"id"`
	Status         string           `bson:"status" json:"status"`
	Documents      []StagedDocument `bson:"documents" json:"-"`
	DocumentCounts map[string]int   `bson:"document_counts" json:"documentCounts"`
	TotalDocuments int              `bson:"total_documents" json:"totalDocuments"`
	ChunkCount     int              `bson:"chunk_count" json:"chunkCount"`
	ErrorMessage   string           `bson:"error_message,omitempty" json:"errorMessage,omitempty"`
	EnqueuedAt     time.Time        `bson:"enqueued_at" json:"enqueuedAt"`
	StartedAt      *time.Time       `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	CompletedAt    *time.Time       `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j *IngestJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
