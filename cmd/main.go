package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcript-rag-backend/internal/ai"
	"transcript-rag-backend/internal/config"
	"transcript-rag-backend/internal/embed"
	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/pinecone"
	"transcript-rag-backend/internal/telemetry"
	"transcript-rag-backend/middleware"
	"transcript-rag-backend/routes"
	"transcript-rag-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Telemetry is optional; without an OTLP endpoint spans stay local no-ops.
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		shutdown, err := telemetry.InitTracer("transcript-rag-backend", endpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdown()
	}
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

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	queueClient := asynq.NewClient(config.AsynqRedisOpt(cfg))
	defer queueClient.Close()

	// Bootstrap the vector index before serving. Creation is idempotent and
	// waits until the index reports ready.
	pineconeClient := pinecone.NewClient(cfg.PineconeAPIKey, cfg.PineconeControlURL, cfg.PineconeAPIVersion)
	bootCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
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

	jobs := services.NewJobStore(mongoClient.Database(cfg.DBName))
	retriever := services.NewRetriever(index, embedder, metrics)

	var chatClient *ai.ChatClient
	if cfg.GeminiAPIKey != "" {
		chatClient, err = ai.NewChatClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier)
		if err != nil {
			log.Fatal("Failed to initialize chat client:", err)
		}
		defer chatClient.Close()
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat endpoint disabled")
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
	router.GET("/api", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API server running"})
	})

	api := router.Group("/api")
	{
		api.POST("/indexing/process", routes.HandleProcessDocuments(cfg, index, jobs, queueClient))
		api.POST("/indexing/query", routes.HandleQueryVectors(cfg, index, retriever, metrics))
		api.GET("/indexing/jobs/:id", routes.HandleGetIngestJob(jobs))
		api.POST("/chat", routes.HandleChat(cfg, retriever, chatClient))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
