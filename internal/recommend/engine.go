package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

var tracer = otel.Tracer("agentpulse/recommend")

// How many recommendations one generation cycle keeps.
const maxRecommendations = 10

// Store is the persistence surface the recommendation engine needs.
type Store interface {
	GetBehaviorRollup(ctx context.Context, since int64) (*models.BehaviorRollup, error)
	GetCostRollup(ctx context.Context, since int64) (*models.CostRollup, error)
	SessionMetricsSince(ctx context.Context, since int64) ([]models.SessionMetrics, error)
	EventKindUsage(ctx context.Context, since int64) (map[models.EventType]int, error)
	GetSessionMetrics(ctx context.Context, sessionID string) (*models.SessionMetrics, error)
	InsertRecommendations(ctx context.Context, recs []models.OptimizationRecommendation) error
}

// Engine generates, ranks and persists optimization recommendations.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Generate runs every recommendation generator, ranks the candidates and
// persists the top slice. A failing generator is logged and skipped.
func (e *Engine) Generate(ctx context.Context) ([]models.OptimizationRecommendation, error) {
	ctx, span := tracer.Start(ctx, "recommend.generate")
	defer span.End()

	generators := []struct {
		name string
		run  func(context.Context) ([]models.OptimizationRecommendation, error)
	}{
		{"efficiency", e.efficiencyRecommendations},
		{"productivity", e.productivityRecommendations},
		{"cost", e.costRecommendations},
		{"health", e.healthRecommendations},
		{"learning", e.learningRecommendations},
	}

	var candidates []models.OptimizationRecommendation
	for _, gen := range generators {
		recs, err := gen.run(ctx)
		if err != nil {
			logger.Error("recommendation generator failed", "generator", gen.name, "error", err)
			continue
		}
		candidates = append(candidates, recs...)
	}

	ranked := rank(candidates)
	if len(ranked) > maxRecommendations {
		ranked = ranked[:maxRecommendations]
	}

	createdAt := e.now().UnixMilli()
	for i := range ranked {
		ranked[i].ID = uuid.New().String()
		ranked[i].CreatedAt = createdAt
	}

	if err := e.store.InsertRecommendations(ctx, ranked); err != nil {
		return nil, fmt.Errorf("failed to persist recommendations: %w", err)
	}

	span.SetAttributes(attribute.Int("recommendations", len(ranked)))
	return ranked, nil
}

// ForSession returns quick, non-persisted suggestions for one session.
// Unknown sessions get an empty result.
func (e *Engine) ForSession(ctx context.Context, sessionID string) ([]models.OptimizationRecommendation, error) {
	metrics, err := e.store.GetSessionMetrics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session metrics: %w", err)
	}
	if metrics == nil {
		return nil, nil
	}

	createdAt := e.now().UnixMilli()
	basedOn := models.BasedOnData{
		SessionCount: 1,
		Timespan:     "current session",
		KeyMetrics: map[string]any{
			"durationMinutes": metrics.DurationMinutes(),
			"toolUsageRatio":  metrics.ToolRatio(),
		},
	}

	var recs []models.OptimizationRecommendation
	if metrics.DurationMinutes() > 120 {
		recs = append(recs, models.OptimizationRecommendation{
			ID:              uuid.New().String(),
			Type:            models.RecHealth,
			Title:           "Take a Break",
			Description:     "This session has been running for over two hours. A short break keeps quality up.",
			PotentialImpact: models.ImpactMedium,
			ActionItems:     []string{"Step away for 10 minutes", "Review progress before continuing"},
			BasedOnData:     basedOn,
			CreatedAt:       createdAt,
		})
	}
	if metrics.EventCount > 0 && metrics.ToolRatio() < 0.2 {
		recs = append(recs, models.OptimizationRecommendation{
			ID:              uuid.New().String(),
			Type:            models.RecEfficiency,
			Title:           "Consider Using More Tools",
			Description:     "Very little of this session uses tools. Direct tool calls often finish tasks faster.",
			PotentialImpact: models.ImpactMedium,
			ActionItems:     []string{"Delegate repetitive steps to tools", "Ask for tool-driven approaches"},
			BasedOnData:     basedOn,
			CreatedAt:       createdAt,
		})
	}

	return recs, nil
}
