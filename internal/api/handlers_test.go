package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/AgentPulseDev/agentpulse-web/internal/db"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

type fakeStore struct {
	events      []models.Event
	metrics     map[string]*models.SessionMetrics
	insights    []models.SessionInsight
	alerts      []models.AnomalyAlert
	resolved    []string
	applied     []string
	insightsErr error
}

func newStore() *fakeStore {
	return &fakeStore{metrics: make(map[string]*models.SessionMetrics)}
}

func (s *fakeStore) InsertEvent(_ context.Context, event *models.Event) (*models.Event, error) {
	stored := *event
	stored.ID = int64(len(s.events) + 1)
	s.events = append(s.events, stored)
	return &stored, nil
}

func (s *fakeStore) GetSessionMetrics(_ context.Context, sessionID string) (*models.SessionMetrics, error) {
	m, ok := s.metrics[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *fakeStore) SessionPredictions(_ context.Context, _ string, _ int) ([]models.SessionPrediction, error) {
	return nil, nil
}

func (s *fakeStore) RecentInsights(_ context.Context, limit int) ([]models.SessionInsight, error) {
	if s.insightsErr != nil {
		return nil, s.insightsErr
	}
	if len(s.insights) > limit {
		return s.insights[:limit], nil
	}
	return s.insights, nil
}

func (s *fakeStore) ActiveAlerts(_ context.Context) ([]models.AnomalyAlert, error) {
	return s.alerts, nil
}

func (s *fakeStore) ResolveAlert(_ context.Context, alertID string) error {
	for _, a := range s.alerts {
		if a.ID == alertID {
			s.resolved = append(s.resolved, alertID)
			return nil
		}
	}
	return db.ErrAlertNotFound
}

func (s *fakeStore) RecentRecommendations(_ context.Context, _ int) ([]models.OptimizationRecommendation, error) {
	return nil, nil
}

func (s *fakeStore) MarkRecommendationApplied(_ context.Context, recID string) error {
	if recID != "known" {
		return db.ErrRecommendationNotFound
	}
	s.applied = append(s.applied, recID)
	return nil
}

func (s *fakeStore) GetDataSummary(_ context.Context) (*models.DataSummary, error) {
	return &models.DataSummary{TotalEvents: 10, TotalSessions: 2, ActiveSessions: 1, HistorySpanDays: 3}, nil
}

type fakePipeline struct {
	processed []models.Event
	err       error
}

func (p *fakePipeline) ProcessEvent(_ context.Context, event *models.Event) error {
	if p.err != nil {
		return p.err
	}
	p.processed = append(p.processed, *event)
	return nil
}

type fakePredictor struct {
	predictions []models.SessionPrediction
	trainErr    error
	trained     int
}

func (p *fakePredictor) Predict(_ context.Context, sessionID string) ([]models.SessionPrediction, error) {
	if sessionID == "missing" {
		return nil, nil
	}
	return p.predictions, nil
}

func (p *fakePredictor) Train(_ context.Context) error {
	p.trained++
	return p.trainErr
}

func (p *fakePredictor) ModelMetrics(_ context.Context) ([]models.ModelSnapshot, error) {
	return []models.ModelSnapshot{{ModelType: "session-duration", Accuracy: 0.75}}, nil
}

type fakeInsights struct{}

func (fakeInsights) GenerateInsights(context.Context) {}

func (fakeInsights) CalculateSessionQuality(_ context.Context, sessionID string) (*models.SessionQualityMetrics, error) {
	if sessionID == "missing" {
		return nil, nil
	}
	return &models.SessionQualityMetrics{SessionID: sessionID, QualityScore: 90}, nil
}

type fakeRecommender struct {
	generated []models.OptimizationRecommendation
}

func (r *fakeRecommender) Generate(context.Context) ([]models.OptimizationRecommendation, error) {
	return r.generated, nil
}

func (r *fakeRecommender) ForSession(_ context.Context, sessionID string) ([]models.OptimizationRecommendation, error) {
	return nil, nil
}

func newTestServer(store *fakeStore) (*Server, http.Handler) {
	s := NewServer(store, &fakePipeline{}, &fakePredictor{predictions: []models.SessionPrediction{{PredictionType: "duration"}}}, fakeInsights{}, &fakeRecommender{}, nil)
	return s, s.SetupRoutes([]string{"*"})
}

func TestIngestEvent(t *testing.T) {
	store := newStore()
	_, handler := newTestServer(store)

	body := `{"source_app":"agent","session_id":"s1","event_type":"UserPromptSubmit","payload":{"tokens":10}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var stored models.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stored.ID == 0 {
		t.Error("stored event has no id")
	}
	if stored.Timestamp == 0 {
		t.Error("timestamp was not defaulted")
	}
	if len(store.events) != 1 {
		t.Errorf("stored %d events, want 1", len(store.events))
	}
}

func TestIngestEventValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing session", `{"source_app":"a","event_type":"Stop","payload":{}}`},
		{"missing source", `{"session_id":"s","event_type":"Stop","payload":{}}`},
		{"missing type", `{"source_app":"a","session_id":"s","payload":{}}`},
		{"missing payload", `{"source_app":"a","session_id":"s","event_type":"Stop"}`},
	}

	_, handler := newTestServer(newStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestIngestEventSurvivesPipelineFailure(t *testing.T) {
	store := newStore()
	s := NewServer(store, &fakePipeline{err: errors.New("compute exploded")}, &fakePredictor{}, fakeInsights{}, &fakeRecommender{}, nil)
	handler := s.SetupRoutes([]string{"*"})

	body := `{"source_app":"agent","session_id":"s1","event_type":"Stop","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201 despite pipeline failure", rec.Code)
	}
}

func TestIngestEventZstdBody(t *testing.T) {
	store := newStore()
	_, handler := newTestServer(store)

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write([]byte(`{"source_app":"agent","session_id":"s1","event_type":"Stop","payload":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", &buf)
	req.Header.Set("Content-Encoding", "zstd")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestIngestEventUnsupportedEncoding(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader("{}"))
	req.Header.Set("Content-Encoding", "br")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestSessionMetricsNotFound(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/ghost/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessionMetricsFound(t *testing.T) {
	store := newStore()
	store.metrics["s1"] = &models.SessionMetrics{SessionID: "s1", EventCount: 5}
	_, handler := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got models.SessionMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.EventCount != 5 {
		t.Errorf("EventCount = %d, want 5", got.EventCount)
	}
}

func TestSessionPredictionsNotFound(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing/predictions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessionQuality(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/quality", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got models.SessionQualityMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.QualityScore != 90 {
		t.Errorf("QualityScore = %v, want 90", got.QualityScore)
	}
}

func TestInsightsLimitValidation(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/insights?limit=banana", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestResolveAlert(t *testing.T) {
	store := newStore()
	store.alerts = []models.AnomalyAlert{{ID: "a1"}}
	_, handler := newTestServer(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/alerts/a1/resolve", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/analytics/alerts/nope/resolve", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown alert", rec.Code)
	}
}

func TestRecommendationApplied(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/recommendations/known/applied", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/analytics/recommendations/unknown/applied", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTrainEndpoint(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/train", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestTrainEndpointGuard(t *testing.T) {
	s, handler := newTestServer(newStore())

	s.trainGuard.Lock()
	defer s.trainGuard.Unlock()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/train", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 while training is in flight", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got models.DataSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalEvents != 10 {
		t.Errorf("TotalEvents = %d, want 10", got.TotalEvents)
	}
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(newStore())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
