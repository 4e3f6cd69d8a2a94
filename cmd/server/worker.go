package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"

	"github.com/AgentPulseDev/agentpulse-web/internal/db"
	"github.com/AgentPulseDev/agentpulse-web/internal/insights"
	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/pipeline"
	"github.com/AgentPulseDev/agentpulse-web/internal/predictor"
	"github.com/AgentPulseDev/agentpulse-web/internal/scheduler"
)

// Sessions with no events for this long are swept to inactive.
const sessionIdleCutoff = 5 * time.Minute

// runWorker is the entry point for the background analytics process. It
// shares the server binary and is selected with the "worker" argument.
func runWorker() {
	logger.Info("starting analytics worker")

	// Initialize OpenTelemetry (same as server)
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry for worker", "error", err)
	} else {
		defer otelShutdown()
	}

	config := loadWorkerConfig()
	logger.Info("worker configuration loaded",
		"train_interval", config.TrainInterval,
		"insight_interval", config.InsightInterval,
		"sweep_interval", config.SweepInterval,
	)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	database, err := db.Connect(databaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	predictEngine := predictor.NewEngine(database, config.TrainingWindow)
	insightEngine := insights.NewEngine(database)

	// Optional one-shot backfill: rebuild every session's metrics and
	// features from the raw event log before the periodic cycle starts.
	if os.Getenv("BACKFILL_ON_START") == "true" {
		eventPipeline := pipeline.New(database, predictEngine)
		reprocessed, err := eventPipeline.ReprocessAll(context.Background())
		if err != nil {
			logger.Error("historical backfill failed", "error", err)
		} else {
			logger.Info("historical backfill complete", "sessions", reprocessed)
		}
	}

	sched := scheduler.New(config.Workers, 16)
	sched.Add(&scheduler.Task{
		Name:     "train-models",
		Interval: config.TrainInterval,
		Run:      predictEngine.Train,
	})
	sched.Add(&scheduler.Task{
		Name:     "generate-insights",
		Interval: config.InsightInterval,
		Run: func(ctx context.Context) error {
			insightEngine.GenerateInsights(ctx)
			return nil
		},
	})
	sched.Add(&scheduler.Task{
		Name:     "sweep-inactive-sessions",
		Interval: config.SweepInterval,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().Add(-sessionIdleCutoff).UnixMilli()
			swept, err := database.MarkInactiveSessions(ctx, cutoff)
			if err != nil {
				return err
			}
			if swept > 0 {
				logger.Info("marked sessions inactive", "count", swept)
			}
			return nil
		},
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutdown signal received, stopping worker")
		cancel()
	}()

	sched.Run(ctx)
	logger.Info("worker stopped")
}

type WorkerConfig struct {
	Workers         int
	TrainInterval   time.Duration
	InsightInterval time.Duration
	SweepInterval   time.Duration
	TrainingWindow  time.Duration
}

func loadWorkerConfig() WorkerConfig {
	config := WorkerConfig{
		Workers:         2,
		TrainInterval:   30 * time.Minute,
		InsightInterval: 5 * time.Minute,
		SweepInterval:   time.Minute,
		TrainingWindow:  30 * 24 * time.Hour,
	}

	if raw := os.Getenv("TRAIN_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			config.TrainInterval = parsed
		}
	}
	if raw := os.Getenv("INSIGHT_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			config.InsightInterval = parsed
		}
	}
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			config.SweepInterval = parsed
		}
	}
	if raw := os.Getenv("TRAINING_WINDOW"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			config.TrainingWindow = parsed
		}
	}

	return config
}
