package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// MongoDB (ingest job records + staged documents)
	MongoURI string
	DBName   string

	// Redis (asynq broker + API rate limiting)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Pinecone
	PineconeAPIKey     string
	PineconeIndexName  string
	PineconeControlURL string
	PineconeAPIVersion string
	PineconeCloud      string
	PineconeRegion     string
	PineconeMetric     string

	// Voyage embeddings
	VoyageAPIKey     string
	VoyageAPIURL     string
	VoyageModel      string
	EmbedDimension   int
	EmbedTimeoutSecs int
	EmbedRetries     int
	EmbedConcurrency int

	// Ingestion pipeline
	VectorBatchSize   int
	UpsertDelayMs     int
	IndexSampleSize   int
	MetadataTextLimit int

	// Chunking presets per document type
	SimulationChunkSize int
	SimulationOverlap   int
	DefaultChunkSize    int
	DefaultOverlap      int

	// Retrieval
	DefaultTopK int

	// Downstream chat model (optional; chat endpoint disabled without it)
	GeminiAPIKey string
	GeminiModel  string
	GeminiTier   string

	// Maintenance cron
	StatsIntervalMins   int
	StaleJobTimeoutMins int

	// Local transcript source (bulk-ingest CLI)
	TranscriptsDir string

	// Inbound rate limiting
	RateLimitReqs   int
	RateLimitWindow int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/transcript_rag"),
		DBName:   getEnv("DB_NAME", "transcript_rag"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		PineconeAPIKey:     getEnv("PINECONE_API_KEY", ""),
		PineconeIndexName:  getEnv("PINECONE_INDEX_NAME", "sales-simulator"),
		PineconeControlURL: getEnv("PINECONE_CONTROL_URL", "https://api.pinecone.io"),
		PineconeAPIVersion: getEnv("PINECONE_API_VERSION", "2025-01"),
		PineconeCloud:      getEnv("PINECONE_CLOUD", "aws"),
		PineconeRegion:     getEnv("PINECONE_REGION", "us-east-1"),
		PineconeMetric:     getEnv("PINECONE_METRIC", "cosine"),

		VoyageAPIKey:     getEnv("VOYAGE_API_KEY", ""),
		VoyageAPIURL:     getEnv("VOYAGE_API_URL", "https://api.voyageai.com/v1/embeddings"),
		VoyageModel:      getEnv("VOYAGE_MODEL", "voyage-2"),
		EmbedDimension:   getEnvInt("EMBED_DIMENSION", 1024),
		EmbedTimeoutSecs: getEnvInt("EMBED_TIMEOUT", 30),
		EmbedRetries:     getEnvInt("EMBED_RETRIES", 3),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 10),

		VectorBatchSize:   getEnvInt("VECTOR_BATCH_SIZE", 10),
		UpsertDelayMs:     getEnvInt("UPSERT_DELAY_MS", 500),
		IndexSampleSize:   getEnvInt("INDEX_SAMPLE_SIZE", 100),
		MetadataTextLimit: getEnvInt("METADATA_TEXT_LIMIT", 1000),

		SimulationChunkSize: getEnvInt("SIMULATION_CHUNK_SIZE", 3000),
		SimulationOverlap:   getEnvInt("SIMULATION_CHUNK_OVERLAP", 100),
		DefaultChunkSize:    getEnvInt("DEFAULT_CHUNK_SIZE", 512),
		DefaultOverlap:      getEnvInt("DEFAULT_CHUNK_OVERLAP", 50),

		DefaultTopK: getEnvInt("DEFAULT_TOP_K", 5),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),

		StatsIntervalMins:   getEnvInt("STATS_INTERVAL_MINS", 15),
		StaleJobTimeoutMins: getEnvInt("STALE_JOB_TIMEOUT_MINS", 120),

		TranscriptsDir: getEnv("TRANSCRIPTS_DIR", "./all_transcripts"),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	// Validate required fields
	if cfg.PineconeAPIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY is required - set it in .env file")
	}

	// An overlap that reaches the chunk size stalls the chunker; reject the
	// configuration before any work starts.
	if cfg.SimulationOverlap >= cfg.SimulationChunkSize {
		return nil, fmt.Errorf("SIMULATION_CHUNK_OVERLAP (%d) must be smaller than SIMULATION_CHUNK_SIZE (%d)",
			cfg.SimulationOverlap, cfg.SimulationChunkSize)
	}
	if cfg.DefaultOverlap >= cfg.DefaultChunkSize {
		return nil, fmt.Errorf("DEFAULT_CHUNK_OVERLAP (%d) must be smaller than DEFAULT_CHUNK_SIZE (%d)",
			cfg.DefaultOverlap, cfg.DefaultChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
