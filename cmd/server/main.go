package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AgentPulseDev/agentpulse-web/internal/api"
	"github.com/AgentPulseDev/agentpulse-web/internal/db"
	"github.com/AgentPulseDev/agentpulse-web/internal/insights"
	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/pipeline"
	"github.com/AgentPulseDev/agentpulse-web/internal/predictor"
	"github.com/AgentPulseDev/agentpulse-web/internal/ratelimit"
	"github.com/AgentPulseDev/agentpulse-web/internal/recommend"
)

var version string

func main() {
	// Check for worker mode
	if len(os.Args) > 1 && os.Args[1] == "worker" {
		runWorker()
		return
	}

	// Initialize OpenTelemetry (sends traces to Honeycomb)
	// Configured via env vars: OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
		// Non-fatal: continue without tracing if OTEL env vars not set
	} else {
		defer otelShutdown()
	}

	config := loadConfig()

	database, err := db.Connect(config.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	if config.RunMigrations {
		if err := database.RunMigrations(); err != nil {
			logger.Fatal("failed to run migrations", "error", err)
		}
		logger.Info("migrations applied")
	}

	predictEngine := predictor.NewEngine(database, config.TrainingWindow)
	eventPipeline := pipeline.New(database, predictEngine)
	insightEngine := insights.NewEngine(database)
	recommendEngine := recommend.NewEngine(database)

	limiter := ratelimit.NewSourceLimiter(config.RateLimitRPS, config.RateLimitBurst)
	defer limiter.Stop()

	server := api.NewServer(database, eventPipeline, predictEngine, insightEngine, recommendEngine, limiter)
	router := server.SetupRoutes(config.AllowedOrigins)

	// Wrap router with OpenTelemetry HTTP instrumentation
	handler := otelhttp.NewHandler(router, "agentpulse-backend")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,  // Configurable via HTTP_READ_TIMEOUT (default: 30s)
		WriteTimeout: config.WriteTimeout, // Configurable via HTTP_WRITE_TIMEOUT (default: 30s)
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", config.Port, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

type Config struct {
	Port           int
	DatabaseURL    string
	RunMigrations  bool
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	TrainingWindow time.Duration
}

func loadConfig() Config {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	// HTTP timeout configuration (defaults to 30s)
	readTimeout := 30 * time.Second
	if rt := os.Getenv("HTTP_READ_TIMEOUT"); rt != "" {
		if parsed, err := time.ParseDuration(rt); err == nil {
			readTimeout = parsed
		}
	}

	writeTimeout := 30 * time.Second
	if wt := os.Getenv("HTTP_WRITE_TIMEOUT"); wt != "" {
		if parsed, err := time.ParseDuration(wt); err == nil {
			writeTimeout = parsed
		}
	}

	allowedOrigins := []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		allowedOrigins = strings.Split(raw, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	}

	// Per-source ingestion rate limit
	rps := 50.0
	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		fmt.Sscanf(raw, "%f", &rps)
	}
	burst := 100
	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		fmt.Sscanf(raw, "%d", &burst)
	}

	trainingWindow := 30 * 24 * time.Hour
	if raw := os.Getenv("TRAINING_WINDOW"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			trainingWindow = parsed
		}
	}

	return Config{
		Port:           port,
		DatabaseURL:    databaseURL,
		RunMigrations:  os.Getenv("RUN_MIGRATIONS") == "true",
		AllowedOrigins: allowedOrigins,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
		TrainingWindow: trainingWindow,
	}
}
