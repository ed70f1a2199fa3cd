package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/telemetry"
)

// MaintenanceCron runs the periodic operational jobs: polling store stats
// for visibility (the only completion signal callers of the async ingest
// flow have) and sweeping ingest jobs stuck in processing.
type MaintenanceCron struct {
	scheduler       *gocron.Scheduler
	store           VectorStore
	jobs            *JobStore
	metrics         *telemetry.Metrics
	statsInterval   time.Duration
	staleJobTimeout time.Duration
}

// NewMaintenanceCron creates the cron. jobs may be nil when no job store is
// configured.
func NewMaintenanceCron(store VectorStore, jobs *JobStore, metrics *telemetry.Metrics, statsInterval, staleJobTimeout time.Duration) *MaintenanceCron {
	return &MaintenanceCron{
		scheduler:       gocron.NewScheduler(time.UTC),
		store:           store,
		jobs:            jobs,
		metrics:         metrics,
		statsInterval:   statsInterval,
		staleJobTimeout: staleJobTimeout,
	}
}

// Start schedules the jobs and runs the scheduler asynchronously.
func (c *MaintenanceCron) Start() error {
	if _, err := c.scheduler.Every(c.statsInterval).Do(c.pollStats); err != nil {
		return err
	}
	if c.jobs != nil {
		if _, err := c.scheduler.Every(c.statsInterval).Do(c.sweepStaleJobs); err != nil {
			return err
		}
	}
	c.scheduler.StartAsync()
	logger.Info("Maintenance cron started", "interval", c.statsInterval.String())
	return nil
}

// Stop stops the scheduler.
func (c *MaintenanceCron) Stop() {
	c.scheduler.Stop()
}

func (c *MaintenanceCron) pollStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := c.store.Stats(ctx)
	if err != nil {
		logger.Warn("Stats poll failed", "error", err.Error())
		return
	}

	logger.Info("Index stats", "totalVectors", stats.TotalVectorCount)
	if c.metrics != nil {
		c.metrics.IndexedVectors.Record(ctx, int64(stats.TotalVectorCount))
	}
}

func (c *MaintenanceCron) sweepStaleJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := c.jobs.FailStale(ctx, c.staleJobTimeout)
	if err != nil {
		logger.Warn("Stale job sweep failed", "error", err.Error())
		return
	}
	if swept > 0 {
		logger.Warn("Failed stale ingest jobs", "count", swept, "deadline", c.staleJobTimeout.String())
	}
}
