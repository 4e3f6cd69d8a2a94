package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AgentPulseDev/agentpulse-web/internal/db"
	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

const (
	defaultInsightLimit = 20
	maxInsightLimit     = 100
)

// handleInsights returns the most recent insights, newest first.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	limit := defaultInsightLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxInsightLimit {
		limit = maxInsightLimit
	}

	insights, err := s.store.RecentInsights(r.Context(), limit)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to load insights", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load insights")
		return
	}
	if insights == nil {
		insights = []models.SessionInsight{}
	}

	respondJSON(w, http.StatusOK, insights)
}

// handleAlerts returns all unresolved anomaly alerts.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.store.ActiveAlerts(r.Context())
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to load alerts", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load alerts")
		return
	}
	if alerts == nil {
		alerts = []models.AnomalyAlert{}
	}

	respondJSON(w, http.StatusOK, alerts)
}

// handleResolveAlert marks one alert resolved.
func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	if err := s.store.ResolveAlert(r.Context(), alertID); err != nil {
		if errors.Is(err, db.ErrAlertNotFound) {
			respondError(w, http.StatusNotFound, "Alert not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to resolve alert", "alert_id", alertID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to resolve alert")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// handleRecommendations generates a fresh ranked recommendation set.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.recommender.Generate(r.Context())
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to generate recommendations", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate recommendations")
		return
	}
	if recs == nil {
		recs = []models.OptimizationRecommendation{}
	}

	respondJSON(w, http.StatusOK, recs)
}

// handleRecommendationApplied records that a recommendation was acted on.
func (s *Server) handleRecommendationApplied(w http.ResponseWriter, r *http.Request) {
	recID := chi.URLParam(r, "recID")

	if err := s.store.MarkRecommendationApplied(r.Context(), recID); err != nil {
		if errors.Is(err, db.ErrRecommendationNotFound) {
			respondError(w, http.StatusNotFound, "Recommendation not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to mark recommendation applied", "recommendation_id", recID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update recommendation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// handleModels reports per-model training metadata.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.predictor.ModelMetrics(r.Context())
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to load model metrics", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load model metrics")
		return
	}

	respondJSON(w, http.StatusOK, snapshots)
}

// handleSummary reports overall corpus size.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.GetDataSummary(r.Context())
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to load data summary", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load data summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleTrain rebuilds the models on demand. Only one training run may
// be in flight at a time.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if !s.trainGuard.TryLock() {
		respondError(w, http.StatusConflict, "Training already in progress")
		return
	}
	defer s.trainGuard.Unlock()

	if err := s.predictor.Train(r.Context()); err != nil {
		logger.Ctx(r.Context()).Error("on-demand training failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Training failed")
		return
	}

	snapshots, err := s.predictor.ModelMetrics(r.Context())
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to load model metrics after training", "error", err)
		respondError(w, http.StatusInternalServerError, "Training finished but metrics are unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "trained",
		"models": snapshots,
	})
}
