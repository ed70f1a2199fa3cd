// Bulk-ingests a local transcript directory synchronously. Unlike the API
// path this runs in the foreground and exits when the directory is indexed,
// which suits one-off backfills and cron-driven refreshes.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"transcript-rag-backend/internal/chunker"
	"transcript-rag-backend/internal/config"
	"transcript-rag-backend/internal/embed"
	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/pinecone"
	"transcript-rag-backend/internal/source"
	"transcript-rag-backend/internal/telemetry"
	"transcript-rag-backend/models"
	"transcript-rag-backend/services"
)

func main() {
	var dir string
	flag.StringVar(&dir, "dir", "", "transcript directory (overrides TRANSCRIPTS_DIR)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if dir == "" {
		dir = cfg.TranscriptsDir
	}

	logger.InitLogger(cfg)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	transcripts, err := source.NewLocalSource(dir)
	if err != nil {
		log.Fatal("Failed to open transcript directory:", err)
	}

	ctx := context.Background()

	pineconeClient := pinecone.NewClient(cfg.PineconeAPIKey, cfg.PineconeControlURL, cfg.PineconeAPIVersion)
	bootCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	desc, err := pineconeClient.EnsureIndex(bootCtx, cfg.PineconeIndexName, cfg.EmbedDimension, cfg.PineconeMetric, cfg.PineconeCloud, cfg.PineconeRegion)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize Pinecone index:", err)
	}
	index := pineconeClient.Index(desc.Host)
	logger.Info("Connected to Pinecone index", "index", cfg.PineconeIndexName, "host", desc.Host)

	embedder := embed.NewService(embed.Options{
		APIKey:      cfg.VoyageAPIKey,
		APIURL:      cfg.VoyageAPIURL,
		Model:       cfg.VoyageModel,
		Dimension:   cfg.EmbedDimension,
		Timeout:     time.Duration(cfg.EmbedTimeoutSecs) * time.Second,
		MaxAttempts: cfg.EmbedRetries,
	})

	tracker := services.NewIndexTracker(index, cfg.EmbedDimension, cfg.IndexSampleSize)

	ids, err := transcripts.ListIDs()
	if err != nil {
		log.Fatal("Failed to list transcripts:", err)
	}
	logger.Info("Found transcript files", "count", len(ids))

	// Filter before loading contents so already-indexed transcripts never
	// leave disk.
	newIDs := tracker.FilterNew(ctx, ids)
	logger.Info("New files to index", "count", len(newIDs), "already_indexed", len(ids)-len(newIDs))
	if len(newIDs) == 0 {
		logger.Info("All files already indexed, nothing to do")
		return
	}

	indexer := services.NewIndexer(index, embedder, tracker, metrics, services.IndexerOptions{
		Policy: chunker.Policy{
			ByType: map[models.DocumentType]chunker.Params{
				models.TypeSimulation: {ChunkSize: cfg.SimulationChunkSize, Overlap: cfg.SimulationOverlap},
			},
			Default: chunker.Params{ChunkSize: cfg.DefaultChunkSize, Overlap: cfg.DefaultOverlap},
		},
		BatchSize:         cfg.VectorBatchSize,
		EmbedConcurrency:  cfg.EmbedConcurrency,
		UpsertDelay:       time.Duration(cfg.UpsertDelayMs) * time.Millisecond,
		MetadataTextLimit: cfg.MetadataTextLimit,
	})

	start := time.Now()
	docs := transcripts.LoadAll(newIDs)
	chunks, err := indexer.Ingest(ctx, docs)
	if err != nil {
		log.Fatal("Ingestion failed:", err)
	}

	logger.Info("Indexing complete",
		"files", len(docs),
		"chunks", chunks,
		"duration", time.Since(start).String())
}
