package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
	"github.com/AgentPulseDev/agentpulse-web/internal/ratelimit"
)

// Store is the persistence surface the HTTP handlers need.
type Store interface {
	InsertEvent(ctx context.Context, event *models.Event) (*models.Event, error)
	GetSessionMetrics(ctx context.Context, sessionID string) (*models.SessionMetrics, error)
	SessionPredictions(ctx context.Context, sessionID string, limit int) ([]models.SessionPrediction, error)
	RecentInsights(ctx context.Context, limit int) ([]models.SessionInsight, error)
	ActiveAlerts(ctx context.Context) ([]models.AnomalyAlert, error)
	ResolveAlert(ctx context.Context, alertID string) error
	RecentRecommendations(ctx context.Context, limit int) ([]models.OptimizationRecommendation, error)
	MarkRecommendationApplied(ctx context.Context, recID string) error
	GetDataSummary(ctx context.Context) (*models.DataSummary, error)
}

// EventProcessor feeds stored events through the aggregation pipeline.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *models.Event) error
}

// Predictor exposes the prediction engine to the HTTP layer.
type Predictor interface {
	Predict(ctx context.Context, sessionID string) ([]models.SessionPrediction, error)
	Train(ctx context.Context) error
	ModelMetrics(ctx context.Context) ([]models.ModelSnapshot, error)
}

// InsightSource exposes the insight engine to the HTTP layer.
type InsightSource interface {
	GenerateInsights(ctx context.Context)
	CalculateSessionQuality(ctx context.Context, sessionID string) (*models.SessionQualityMetrics, error)
}

// Recommender exposes the recommendation engine to the HTTP layer.
type Recommender interface {
	Generate(ctx context.Context) ([]models.OptimizationRecommendation, error)
	ForSession(ctx context.Context, sessionID string) ([]models.OptimizationRecommendation, error)
}

// Server holds dependencies for API handlers
type Server struct {
	store       Store
	pipeline    EventProcessor
	predictor   Predictor
	insights    InsightSource
	recommender Recommender
	limiter     ratelimit.Limiter

	// Guards the on-demand training endpoint.
	trainGuard sync.Mutex
}

// NewServer creates a new API server
func NewServer(store Store, pipeline EventProcessor, predictor Predictor, insights InsightSource, recommender Recommender, limiter ratelimit.Limiter) *Server {
	return &Server{
		store:       store,
		pipeline:    pipeline,
		predictor:   predictor,
		insights:    insights,
		recommender: recommender,
		limiter:     limiter,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Encoding"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Event ingestion, rate limited per source
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(ratelimit.Middleware(s.limiter))
			}
			r.Use(decompressMiddleware())
			r.Post("/events", s.handleIngestEvent)
		})

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/metrics", s.handleSessionMetrics)
			r.Get("/predictions", s.handleSessionPredictions)
			r.Get("/quality", s.handleSessionQuality)
			r.Get("/recommendations", s.handleSessionRecommendations)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/insights", s.handleInsights)
			r.Get("/alerts", s.handleAlerts)
			r.Post("/alerts/{alertID}/resolve", s.handleResolveAlert)
			r.Get("/recommendations", s.handleRecommendations)
			r.Post("/recommendations/{recID}/applied", s.handleRecommendationApplied)
			r.Get("/models", s.handleModels)
			r.Get("/summary", s.handleSummary)
			r.Post("/train", s.handleTrain)
		})
	})

	return r
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleRoot returns API info
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "agentpulse-backend",
		"version": "v1",
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
