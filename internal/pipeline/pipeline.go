package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

var tracer = otel.Tracer("agentpulse/pipeline")

const (
	// How many trailing events feed the contextual features.
	recentEventWindow = 50

	// A session with no activity for this long is considered inactive.
	inactivityWindow = 5 * time.Minute

	predictionTimeout = 30 * time.Second
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetSessionMetrics(ctx context.Context, sessionID string) (*models.SessionMetrics, error)
	UpsertSessionMetrics(ctx context.Context, m *models.SessionMetrics) error
	InsertSessionFeatures(ctx context.Context, features []models.SessionFeature) error
	RecentSessionEvents(ctx context.Context, sessionID string, limit int) ([]models.Event, error)
	SessionEvents(ctx context.Context, sessionID string) ([]models.Event, error)
	SessionIDs(ctx context.Context) ([]string, error)
}

// PredictionTrigger lets the pipeline kick off background predictions
// without depending on the prediction engine directly.
type PredictionTrigger interface {
	Predict(ctx context.Context, sessionID string) ([]models.SessionPrediction, error)
}

// Pipeline turns raw events into session metrics and feature rows.
type Pipeline struct {
	store     Store
	predictor PredictionTrigger
	now       func() time.Time
}

func New(store Store, predictor PredictionTrigger) *Pipeline {
	return &Pipeline{
		store:     store,
		predictor: predictor,
		now:       time.Now,
	}
}

// ProcessEvent aggregates one stored event into its session's metrics and
// records the extracted features. Prompt and stop events additionally
// trigger a fire-and-forget prediction pass.
func (p *Pipeline) ProcessEvent(ctx context.Context, event *models.Event) error {
	ctx, span := tracer.Start(ctx, "pipeline.process_event")
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", event.SessionID),
		attribute.String("event_type", string(event.EventType)),
	)

	nowMs := p.now().UnixMilli()

	metrics, err := p.store.GetSessionMetrics(ctx, event.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session metrics: %w", err)
	}
	metrics = applyToMetrics(metrics, event, nowMs)
	if err := p.store.UpsertSessionMetrics(ctx, metrics); err != nil {
		return fmt.Errorf("failed to store session metrics: %w", err)
	}

	recent, err := p.store.RecentSessionEvents(ctx, event.SessionID, recentEventWindow)
	if err != nil {
		return fmt.Errorf("failed to load recent events: %w", err)
	}
	features := extractFeatures(event, recent)
	if err := p.store.InsertSessionFeatures(ctx, features); err != nil {
		return fmt.Errorf("failed to store session features: %w", err)
	}

	if p.predictor != nil && triggersPredictions(event.EventType) {
		go p.runPredictions(event.SessionID)
	}

	return nil
}

// ReprocessHistory rebuilds a session's metrics from scratch by replaying
// its full event history in timestamp order. The rebuilt record replaces
// whatever incremental state exists.
func (p *Pipeline) ReprocessHistory(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "pipeline.reprocess_history")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	events, err := p.store.SessionEvents(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	nowMs := p.now().UnixMilli()

	var metrics *models.SessionMetrics
	var features []models.SessionFeature
	for i := range events {
		event := &events[i]
		metrics = applyToMetrics(metrics, event, nowMs)
		features = append(features, extractFeatures(event, tailWindow(events[:i+1], recentEventWindow))...)
	}

	if err := p.store.UpsertSessionMetrics(ctx, metrics); err != nil {
		return fmt.Errorf("failed to store rebuilt metrics: %w", err)
	}
	if err := p.store.InsertSessionFeatures(ctx, features); err != nil {
		return fmt.Errorf("failed to store rebuilt features: %w", err)
	}

	span.SetAttributes(attribute.Int("events.replayed", len(events)))
	return nil
}

// ReprocessAll replays history for every known session and returns how
// many sessions were rebuilt.
func (p *Pipeline) ReprocessAll(ctx context.Context) (int, error) {
	ids, err := p.store.SessionIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	rebuilt := 0
	for _, id := range ids {
		if err := p.ReprocessHistory(ctx, id); err != nil {
			return rebuilt, err
		}
		rebuilt++
	}

	return rebuilt, nil
}

func triggersPredictions(t models.EventType) bool {
	return t == models.EventUserPromptSubmit || t == models.EventStop
}

func (p *Pipeline) runPredictions(sessionID string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("prediction trigger panicked", "session_id", sessionID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), predictionTimeout)
	defer cancel()

	if _, err := p.predictor.Predict(ctx, sessionID); err != nil {
		logger.Warn("background prediction failed", "session_id", sessionID, "error", err)
	}
}

// applyToMetrics folds one event into the running aggregate, creating it
// on first sight. Quality is recomputed fresh on every event.
func applyToMetrics(m *models.SessionMetrics, event *models.Event, nowMs int64) *models.SessionMetrics {
	ts := event.Timestamp
	if ts == 0 {
		ts = nowMs
	}

	if m == nil {
		m = &models.SessionMetrics{
			SessionID: event.SessionID,
			StartTime: ts,
			EndTime:   ts,
		}
	}

	m.EventCount++
	if event.EventType.IsToolUse() {
		m.ToolUsageCount++
	}
	if event.EventType.IsPrompt() {
		m.PromptCount++
	}
	m.TotalTokens += extractTokens(event.Payload)

	if ts > m.EndTime {
		m.EndTime = ts
	}
	m.DurationMs = m.EndTime - m.StartTime
	if m.DurationMs < 0 {
		m.DurationMs = 0
	}

	if m.DurationMs > 0 {
		m.TokensPerMinute = float64(m.TotalTokens) / float64(m.DurationMs) * 60000
	} else {
		m.TokensPerMinute = 0
	}

	m.IsActive = nowMs-m.EndTime < inactivityWindow.Milliseconds()
	m.QualityScore = qualityScore(m)

	return m
}

func tailWindow(events []models.Event, n int) []models.Event {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}
