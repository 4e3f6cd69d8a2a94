package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

const (
	// Largest accepted event body after decompression.
	maxEventBody = 1 << 20

	maxSessionIDLen = 255
	maxSourceAppLen = 255
)

type ingestEventRequest struct {
	SourceApp string         `json:"source_app"`
	SessionID string         `json:"session_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	Summary   string         `json:"summary"`
	Timestamp int64          `json:"timestamp"`
}

// handleIngestEvent validates and stores one event, then feeds it through
// the aggregation pipeline. Pipeline failures are logged but never fail
// the ingestion: the event is already durable.
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBody)

	var req ingestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.SessionID == "" || len(req.SessionID) > maxSessionIDLen {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.SourceApp == "" || len(req.SourceApp) > maxSourceAppLen {
		respondError(w, http.StatusBadRequest, "source_app is required")
		return
	}
	if req.EventType == "" {
		respondError(w, http.StatusBadRequest, "event_type is required")
		return
	}
	if req.Payload == nil {
		respondError(w, http.StatusBadRequest, "payload is required")
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	event := &models.Event{
		SourceApp: req.SourceApp,
		SessionID: req.SessionID,
		EventType: models.EventType(req.EventType),
		Payload:   req.Payload,
		Summary:   req.Summary,
		Timestamp: timestamp,
	}

	stored, err := s.store.InsertEvent(r.Context(), event)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to store event", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to store event")
		return
	}

	if err := s.pipeline.ProcessEvent(r.Context(), stored); err != nil {
		logger.Ctx(r.Context()).Error("failed to process event", "session_id", stored.SessionID, "error", err)
	}

	respondJSON(w, http.StatusCreated, stored)
}
