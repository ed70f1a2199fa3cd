package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcript-rag-backend/internal/chunker"
	"transcript-rag-backend/internal/config"
	"transcript-rag-backend/internal/embed"
	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/pinecone"
	"transcript-rag-backend/internal/queue"
	"transcript-rag-backend/internal/telemetry"
	"transcript-rag-backend/models"
	"transcript-rag-backend/services"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	pineconeClient := pinecone.NewClient(cfg.PineconeAPIKey, cfg.PineconeControlURL, cfg.PineconeAPIVersion)
	bootCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	desc, err := pineconeClient.EnsureIndex(bootCtx, cfg.PineconeIndexName, cfg.EmbedDimension, cfg.PineconeMetric, cfg.PineconeCloud, cfg.PineconeRegion)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize Pinecone index:", err)
	}
	index := pineconeClient.Index(desc.Host)

	embedder := embed.NewService(embed.Options{
		APIKey:      cfg.VoyageAPIKey,
		APIURL:      cfg.VoyageAPIURL,
		Model:       cfg.VoyageModel,
		Dimension:   cfg.EmbedDimension,
		Timeout:     time.Duration(cfg.EmbedTimeoutSecs) * time.Second,
		MaxAttempts: cfg.EmbedRetries,
	})

	tracker := services.NewIndexTracker(index, cfg.EmbedDimension, cfg.IndexSampleSize)
	jobs := services.NewJobStore(mongoClient.Database(cfg.DBName))

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

	cron := services.NewMaintenanceCron(index, jobs, metrics,
		time.Duration(cfg.StatsIntervalMins)*time.Minute,
		time.Duration(cfg.StaleJobTimeoutMins)*time.Minute)
	if err := cron.Start(); err != nil {
		log.Fatal("Failed to start maintenance cron:", err)
	}
	defer cron.Stop()

	server := asynq.NewServer(
		config.AsynqRedisOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err.Error())
			}),
		},
	)

	processor := queue.NewTaskProcessor(jobs, indexer, metrics)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocuments, processor.ProcessIngest)

	go func() {
		log.Println("Starting ingestion worker...")
		if err := server.Run(mux); err != nil {
			log.Fatal("Failed to start worker:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	server.Shutdown()
}
