package insights

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

var tracer = otel.Tracer("agentpulse/insights")

// Store is the persistence surface the insight engine needs.
type Store interface {
	ActiveSessionMetrics(ctx context.Context) ([]models.SessionMetrics, error)
	SessionMetricsSince(ctx context.Context, since int64) ([]models.SessionMetrics, error)
	GetSessionMetrics(ctx context.Context, sessionID string) (*models.SessionMetrics, error)
	RecentSessionEvents(ctx context.Context, sessionID string, limit int) ([]models.Event, error)
	InsertInsight(ctx context.Context, insight *models.SessionInsight) error
	InsertAlert(ctx context.Context, alert *models.AnomalyAlert) error
	InsertRecommendations(ctx context.Context, recs []models.OptimizationRecommendation) error
	GetOptimizationRollup(ctx context.Context, since int64) (*models.OptimizationRollup, error)
}

// Engine derives insights and anomaly alerts from aggregated session
// state. One generation cycle runs five independent passes.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// GenerateInsights runs all analysis passes. Each pass is isolated: a
// failing or panicking pass is logged and the rest still run.
func (e *Engine) GenerateInsights(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "insights.generate")
	defer span.End()

	passes := []struct {
		name string
		run  func(context.Context) error
	}{
		{"usage_patterns", e.analyzeUsagePatterns},
		{"productivity_trends", e.analyzeProductivityTrends},
		{"anomalies", e.detectAnomalies},
		{"optimization", e.analyzeOptimization},
		{"health", e.analyzeHealth},
	}

	for _, pass := range passes {
		e.runPass(ctx, pass.name, pass.run)
	}
	span.SetAttributes(attribute.Int("passes", len(passes)))
}

func (e *Engine) runPass(ctx context.Context, name string, run func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("insight pass panicked", "pass", name, "panic", r)
		}
	}()

	if err := run(ctx); err != nil {
		logger.Error("insight pass failed", "pass", name, "error", err)
	}
}

func (e *Engine) insight(ctx context.Context, sessionID *string, insightType string, priority models.Priority, data map[string]any) error {
	return e.store.InsertInsight(ctx, &models.SessionInsight{
		SessionID:   sessionID,
		InsightType: insightType,
		InsightData: data,
		Priority:    priority,
		CreatedAt:   e.now().UnixMilli(),
	})
}

// eventGapsMs returns the millisecond gaps between consecutive events.
func eventGapsMs(events []models.Event) []float64 {
	if len(events) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		gaps = append(gaps, float64(events[i].Timestamp-events[i-1].Timestamp))
	}
	return gaps
}
