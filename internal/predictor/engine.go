package predictor

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

var tracer = otel.Tracer("agentpulse/predictor")

const defaultTrainingWindow = 30 * 24 * time.Hour

// Store is the persistence surface the prediction engine needs.
type Store interface {
	SessionMetricsSince(ctx context.Context, since int64) ([]models.SessionMetrics, error)
	GetSessionMetrics(ctx context.Context, sessionID string) (*models.SessionMetrics, error)
	SessionFeatures(ctx context.Context, sessionID string) ([]models.SessionFeature, error)
	InsertPrediction(ctx context.Context, p *models.SessionPrediction) error
	ReplaceModelSnapshots(ctx context.Context, snapshots []models.ModelSnapshot) error
	ModelSnapshots(ctx context.Context) ([]models.ModelSnapshot, error)
}

// Engine trains descriptive-statistics models and produces per-session
// predictions from them. Readers always see a complete model set.
type Engine struct {
	store          Store
	trainingWindow time.Duration
	models         atomic.Pointer[ModelSet]
	now            func() time.Time
}

func NewEngine(store Store, trainingWindow time.Duration) *Engine {
	if trainingWindow <= 0 {
		trainingWindow = defaultTrainingWindow
	}
	e := &Engine{
		store:          store,
		trainingWindow: trainingWindow,
		now:            time.Now,
	}
	e.models.Store(DefaultModelSet())
	return e
}

// Models returns the current model generation.
func (e *Engine) Models() *ModelSet {
	return e.models.Load()
}

// Train rebuilds all models from the session history inside the training
// window and swaps the new generation in atomically.
func (e *Engine) Train(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "predictor.train")
	defer span.End()

	now := e.now()
	since := now.Add(-e.trainingWindow).UnixMilli()

	sessions, err := e.store.SessionMetricsSince(ctx, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "training query failed")
		return fmt.Errorf("failed to load training sessions: %w", err)
	}
	span.SetAttributes(attribute.Int("training.sessions", len(sessions)))

	set := buildModelSet(sessions, now)
	e.models.Store(set)

	if err := e.store.ReplaceModelSnapshots(ctx, set.Snapshots()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot persist failed")
		return fmt.Errorf("failed to persist model snapshots: %w", err)
	}

	logger.Info("models trained", "sessions", len(sessions), "window", e.trainingWindow.String())
	return nil
}

// ModelMetrics reports per-model training metadata. Persisted snapshots
// win over the in-memory set so restarts keep reporting the last real
// training cycle.
func (e *Engine) ModelMetrics(ctx context.Context) ([]models.ModelSnapshot, error) {
	snapshots, err := e.store.ModelSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshots) > 0 {
		return snapshots, nil
	}
	return e.models.Load().Snapshots(), nil
}

// Predict produces one prediction per model for the session. Each
// prediction is persisted independently; a failed insert is logged and
// the rest still go through. Returns nil when the session is unknown.
func (e *Engine) Predict(ctx context.Context, sessionID string) ([]models.SessionPrediction, error) {
	ctx, span := tracer.Start(ctx, "predictor.predict")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	metrics, err := e.store.GetSessionMetrics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session metrics: %w", err)
	}
	if metrics == nil {
		return nil, nil
	}

	features, err := e.store.SessionFeatures(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session features: %w", err)
	}

	set := e.models.Load()
	fv := buildFeatureVector(metrics, features, e.now())
	createdAt := e.now().UnixMilli()

	candidates := []models.SessionPrediction{
		e.predictDuration(set, metrics, fv),
		e.predictVelocity(set, metrics, fv),
		e.predictQuality(set, fv),
		e.predictAnomaly(set, fv),
	}

	var stored []models.SessionPrediction
	for i := range candidates {
		p := candidates[i]
		p.SessionID = sessionID
		p.CreatedAt = createdAt
		if err := e.store.InsertPrediction(ctx, &p); err != nil {
			logger.Warn("failed to persist prediction", "session_id", sessionID, "type", p.PredictionType, "error", err)
			continue
		}
		stored = append(stored, p)
	}

	return stored, nil
}

func (e *Engine) predictDuration(set *ModelSet, metrics *models.SessionMetrics, fv featureVector) models.SessionPrediction {
	model := set.Duration

	predicted := model.Mean
	if stat, ok := model.Hourly[fv.HourOfDay]; ok {
		predicted = stat.Mean
	}
	if fv.ToolRatio > 0.6 {
		predicted *= 1.2
	}

	if elapsed := metrics.DurationMinutes(); elapsed > 0 {
		predicted -= elapsed
		if predicted < 0 {
			predicted = 0
		}
	}

	return models.SessionPrediction{
		PredictionType: "duration",
		PredictedValue: math.Round(predicted),
		Confidence:     confidence(0.3, 0.6, 0.9, model.Samples),
	}
}

func (e *Engine) predictVelocity(set *ModelSet, metrics *models.SessionMetrics, fv featureVector) models.SessionPrediction {
	model := set.Velocity

	predicted := model.Mean
	if stat, ok := model.Hourly[fv.HourOfDay]; ok {
		predicted = stat.Mean
	}
	if fv.ToolRatio > 0.5 {
		predicted *= 1.3
	}

	// Blend toward what the session is actually doing.
	if metrics.TokensPerMinute > 0 {
		predicted = metrics.TokensPerMinute*0.6 + predicted*0.4
	}

	return models.SessionPrediction{
		PredictionType: "velocity",
		PredictedValue: math.Round(predicted*100) / 100,
		Confidence:     confidence(0.4, 0.5, 0.9, model.Samples),
	}
}

func (e *Engine) predictQuality(set *ModelSet, fv featureVector) models.SessionPrediction {
	model := set.Quality

	predicted := model.Mean
	if fv.ToolRatio > 0.3 && fv.ToolRatio < 0.8 {
		predicted += 10
	}
	if fv.ErrorRate < 0.1 {
		predicted += 15
	} else if fv.ErrorRate > 0.3 {
		predicted -= 20
	}
	if fv.Productivity > 5 {
		predicted += 10
	}
	if predicted < 0 {
		predicted = 0
	}
	if predicted > 100 {
		predicted = 100
	}

	return models.SessionPrediction{
		PredictionType: "quality",
		PredictedValue: math.Round(predicted),
		Confidence:     confidence(0.5, 0.35, 0.85, model.Samples),
	}
}

func (e *Engine) predictAnomaly(set *ModelSet, fv featureVector) models.SessionPrediction {
	model := set.Anomaly

	score := 0.0
	if !model.Duration.Contains(fv.DurationMinutes) {
		score += 30
	}
	if !model.Velocity.Contains(fv.TokenVelocity) {
		score += 25
	}
	if !model.ToolRatio.Contains(fv.ToolRatio) {
		score += 20
	}
	if fv.Productivity == 0 && fv.DurationMinutes > 30 {
		score += 25
	}
	if fv.AvgTimeGapMs > 600_000 {
		score += 15
	}
	if score > 100 {
		score = 100
	}

	conf := 0.4
	if score > 50 {
		conf = 0.8
	}

	return models.SessionPrediction{
		PredictionType: "anomaly",
		PredictedValue: score,
		Confidence:     conf,
	}
}

// confidence scales with how much history fed the model, saturating at
// 100 samples, and never exceeds the per-model ceiling.
func confidence(base, weight, ceiling float64, samples int) float64 {
	frac := float64(samples) / 100
	if frac > 1 {
		frac = 1
	}
	c := base + weight*frac
	if c > ceiling {
		c = ceiling
	}
	return c
}
