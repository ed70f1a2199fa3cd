package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"transcript-rag-backend/internal/config"
	"transcript-rag-backend/internal/embed"
	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/pinecone"
	"transcript-rag-backend/internal/queue"
	"transcript-rag-backend/internal/telemetry"
	"transcript-rag-backend/models"
	"transcript-rag-backend/services"
	"transcript-rag-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// ProcessRequest accepts documents plus optional credential overrides. A
// request that supplies its own keys is validated and filtered against the
// index those keys point at; background processing always runs with server
// credentials, which are never persisted.
type ProcessRequest struct {
	Documents         []models.Document `json:"documents"`
	PineconeAPIKey    string            `json:"pineconeApiKey"`
	PineconeIndexName string            `json:"pineconeIndexName"`
	VoyageAPIKey      string            `json:"voyageApiKey"`
}

// QueryRequest mirrors the process overrides for the retrieval path.
type QueryRequest struct {
	Query             string `json:"query"`
	TopK              int    `json:"topK"`
	PineconeAPIKey    string `json:"pineconeApiKey"`
	PineconeIndexName string `json:"pineconeIndexName"`
	VoyageAPIKey      string `json:"voyageApiKey"`
}

// resolveIndex builds a data-plane handle for the request's credentials,
// creating the index first if it does not exist yet. With no overrides the
// ambient handle is returned untouched.
func resolveIndex(ctx context.Context, cfg *config.Config, defaultIndex *pinecone.Index, req ProcessRequest) (*pinecone.Index, error) {
	if req.PineconeAPIKey == "" && req.PineconeIndexName == "" {
		return defaultIndex, nil
	}

	apiKey := req.PineconeAPIKey
	if apiKey == "" {
		apiKey = cfg.PineconeAPIKey
	}
	indexName := req.PineconeIndexName
	if indexName == "" {
		indexName = cfg.PineconeIndexName
	}

	client := pinecone.NewClient(apiKey, cfg.PineconeControlURL, cfg.PineconeAPIVersion)
	desc, err := client.EnsureIndex(ctx, indexName, cfg.EmbedDimension, cfg.PineconeMetric, cfg.PineconeCloud, cfg.PineconeRegion)
	if err != nil {
		return nil, fmt.Errorf("initializing index %s: %w", indexName, err)
	}
	return client.Index(desc.Host), nil
}

// HandleProcessDocuments stages the new documents as an ingest job and
// enqueues it. The response is an acknowledgment, not a completion report:
// chunk counting happens in the worker and is visible on the job record.
func HandleProcessDocuments(cfg *config.Config, defaultIndex *pinecone.Index, jobs *services.JobStore, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}
		if len(req.Documents) == 0 {
			utils.RespondWithBadRequest(c, "Documents are required", nil)
			return
		}
		for _, doc := range req.Documents {
			if doc.ID == "" || doc.Content == "" {
				utils.RespondWithBadRequest(c, "Each document needs an id and content", gin.H{"documentId": doc.ID})
				return
			}
		}

		index, err := resolveIndex(c.Request.Context(), cfg, defaultIndex, req)
		if err != nil {
			logger.Error("Index resolution failed", "error", err.Error())
			utils.RespondWithServiceUnavailable(c, "Vector store is unavailable")
			return
		}

		// Filter documents already present so the acknowledgment counts
		// reflect actual work. The worker re-checks; a race here only
		// causes an idempotent re-upsert.
		tracker := services.NewIndexTracker(index, cfg.EmbedDimension, cfg.IndexSampleSize)
		ids := make([]string, len(req.Documents))
		byID := make(map[string]models.Document, len(req.Documents))
		for i, doc := range req.Documents {
			ids[i] = doc.ID
			byID[doc.ID] = doc
		}
		freshIDs := tracker.FilterNew(c.Request.Context(), ids)

		if len(freshIDs) == 0 {
			c.JSON(http.StatusOK, gin.H{
				"message":        "All documents are already indexed",
				"documentCounts": models.CountByType(nil),
				"chunkCount":     0,
			})
			return
		}

		newDocs := make([]models.Document, 0, len(freshIDs))
		for _, id := range freshIDs {
			newDocs = append(newDocs, byID[id])
		}

		job, err := jobs.Create(c.Request.Context(), newDocs)
		if err != nil {
			logger.Error("Failed to stage ingest job", "error", err.Error())
			utils.RespondWithInternalError(c, "Failed to stage ingestion job", nil)
			return
		}

		task, err := queue.NewIngestTask(job.ID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build ingestion task", nil)
			return
		}
		if _, err := queueClient.Enqueue(task); err != nil {
			logger.Error("Failed to enqueue ingest job", "job_id", job.ID, "error", err.Error())
			if markErr := jobs.MarkFailed(context.Background(), job.ID, "enqueue failed: "+err.Error()); markErr != nil {
				logger.Error("Failed to mark job failed", "job_id", job.ID, "error", markErr.Error())
			}
			utils.RespondWithServiceUnavailable(c, "Ingestion queue is unavailable")
			return
		}

		logger.Info("Ingest job accepted",
			"job_id", job.ID,
			"documents", len(newDocs),
			"skipped", len(req.Documents)-len(newDocs))

		c.JSON(http.StatusAccepted, gin.H{
			"message":        fmt.Sprintf("Processing started for %d new documents", len(newDocs)),
			"jobId":          job.ID,
			"documentCounts": job.DocumentCounts,
			"chunkCount":     "Calculating...",
		})
	}
}

// HandleGetIngestJob reports the status of one ingest job.
func HandleGetIngestJob(jobs *services.JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := jobs.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithNotFound(c, "Job not found")
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// HandleQueryVectors embeds the query, fetches the nearest chunks and returns
// the assembled context string alongside the raw matches.
func HandleQueryVectors(cfg *config.Config, defaultIndex *pinecone.Index, defaultRetriever *services.Retriever, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}
		if req.Query == "" {
			utils.RespondWithBadRequest(c, "Query is required", nil)
			return
		}
		topK := req.TopK
		if topK <= 0 {
			topK = cfg.DefaultTopK
		}

		retriever := defaultRetriever
		if req.PineconeAPIKey != "" || req.PineconeIndexName != "" || req.VoyageAPIKey != "" {
			index, err := resolveIndex(c.Request.Context(), cfg, defaultIndex, ProcessRequest{
				PineconeAPIKey:    req.PineconeAPIKey,
				PineconeIndexName: req.PineconeIndexName,
			})
			if err != nil {
				logger.Error("Index resolution failed", "error", err.Error())
				utils.RespondWithServiceUnavailable(c, "Vector store is unavailable")
				return
			}
			voyageKey := req.VoyageAPIKey
			if voyageKey == "" {
				voyageKey = cfg.VoyageAPIKey
			}
			embedder := embed.NewService(embed.Options{
				APIKey:      voyageKey,
				APIURL:      cfg.VoyageAPIURL,
				Model:       cfg.VoyageModel,
				Dimension:   cfg.EmbedDimension,
				Timeout:     time.Duration(cfg.EmbedTimeoutSecs) * time.Second,
				MaxAttempts: cfg.EmbedRetries,
			})
			retriever = services.NewRetriever(index, embedder, metrics)
		}

		result, err := retriever.Query(c.Request.Context(), req.Query, topK)
		if err != nil {
			logger.Error("Query failed", "error", err.Error())
			utils.RespondWithInternalError(c, "Query failed", nil)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
