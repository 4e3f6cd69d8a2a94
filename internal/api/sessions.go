package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// handleSessionMetrics returns the aggregated metrics for one session.
func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	metrics, err := s.store.GetSessionMetrics(r.Context(), sessionID)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to load session metrics", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load session metrics")
		return
	}
	if metrics == nil {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}

// handleSessionPredictions generates fresh predictions for the session.
func (s *Server) handleSessionPredictions(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	predictions, err := s.predictor.Predict(r.Context(), sessionID)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to generate predictions", "session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate predictions")
		return
	}
	if predictions == nil {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	respondJSON(w, http.StatusOK, predictions)
}

// handleSessionQuality returns the on-demand quality report.
func (s *Server) handleSessionQuality(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	report, err := s.insights.CalculateSessionQuality(r.Context(), sessionID)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to calculate session quality", "session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to calculate session quality")
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleSessionRecommendations returns quick suggestions for one session.
func (s *Server) handleSessionRecommendations(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	metrics, err := s.store.GetSessionMetrics(r.Context(), sessionID)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to load session metrics", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load session metrics")
		return
	}
	if metrics == nil {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	recs, err := s.recommender.ForSession(r.Context(), sessionID)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to build session recommendations", "session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to build recommendations")
		return
	}
	if recs == nil {
		recs = []models.OptimizationRecommendation{}
	}

	respondJSON(w, http.StatusOK, recs)
}
