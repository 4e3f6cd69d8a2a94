package insights

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// Flat blended rate used for rough spend estimates, USD per 1K tokens.
var costPerThousandTokens = decimal.NewFromFloat(0.01)

// analyzeOptimization turns the weekly token rollup into persisted
// recommendations. High-impact ones are mirrored as insights so they
// show up in the feed too.
func (e *Engine) analyzeOptimization(ctx context.Context) error {
	since := e.now().Add(-7 * 24 * time.Hour).UnixMilli()
	rollup, err := e.store.GetOptimizationRollup(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to load optimization rollup: %w", err)
	}
	if rollup.SessionCount == 0 {
		return nil
	}

	sessions, err := e.store.SessionMetricsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to load weekly sessions: %w", err)
	}

	recs := optimizationRecommendations(rollup, peakProductivityHours(sessions))
	if len(recs) == 0 {
		return nil
	}

	now := e.now().UnixMilli()
	for i := range recs {
		recs[i].ID = uuid.NewString()
		recs[i].CreatedAt = now
	}
	if err := e.store.InsertRecommendations(ctx, recs); err != nil {
		return fmt.Errorf("failed to store optimization recommendations: %w", err)
	}

	for i := range recs {
		rec := &recs[i]
		if rec.PotentialImpact != models.ImpactHigh {
			continue
		}
		err := e.insight(ctx, nil, "optimization-opportunity", models.PriorityHigh, map[string]any{
			"type":            string(rec.Type),
			"title":           rec.Title,
			"description":     rec.Description,
			"actionItems":     rec.ActionItems,
			"potentialImpact": string(rec.PotentialImpact),
		})
		if err != nil {
			return fmt.Errorf("failed to store optimization insight: %w", err)
		}
	}

	return nil
}

// optimizationRecommendations builds up to three recommendations from
// the weekly rollup: token efficiency, session timing, and cost.
func optimizationRecommendations(rollup *models.OptimizationRollup, peaks []int) []models.OptimizationRecommendation {
	var recs []models.OptimizationRecommendation

	if rollup.AvgTokensPerTask > 1000 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecEfficiency,
			Title:           "Optimize Token Usage",
			Description:     "Average token consumption per task is higher than optimal. Break complex requests into smaller, focused queries.",
			PotentialImpact: models.ImpactHigh,
			ActionItems: []string{
				"Break complex queries into smaller parts",
				"Use more specific prompts",
				"Lean on context from previous responses",
			},
			BasedOnData: models.BasedOnData{
				SessionCount: rollup.SessionCount,
				Timespan:     "7 days",
				KeyMetrics: map[string]any{
					"avgTokensPerTask": math.Round(rollup.AvgTokensPerTask),
					"potentialSavings": math.Round(rollup.AvgTokensPerTask * 0.3),
				},
			},
		})
	}

	if len(peaks) > 0 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecProductivity,
			Title:           "Optimize Session Timing",
			Description:     fmt.Sprintf("Productivity peaks around %02d:00. Schedule important work during peak hours.", peaks[0]),
			PotentialImpact: models.ImpactMedium,
			ActionItems: []string{
				fmt.Sprintf("Schedule complex tasks between %02d:00 and %02d:00", peaks[0], (peaks[0]+2)%24),
				"Use off-peak hours for routine tasks",
			},
			BasedOnData: models.BasedOnData{
				SessionCount: rollup.SessionCount,
				Timespan:     "7 days",
				KeyMetrics:   map[string]any{"peakHours": peaks},
			},
		})
	}

	if rollup.AvgDailyTokens > 50_000 {
		monthly := estimateMonthlyCost(rollup.AvgDailyTokens)
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecCost,
			Title:           "Reduce Token Consumption",
			Description:     fmt.Sprintf("Daily token volume projects to about $%s per month. Efficiency measures would cut costs without losing throughput.", monthly.StringFixed(2)),
			PotentialImpact: models.ImpactHigh,
			ActionItems: []string{
				"Review and tighten frequent queries",
				"Cache responses for repetitive tasks",
			},
			BasedOnData: models.BasedOnData{
				SessionCount: rollup.SessionCount,
				Timespan:     "7 days",
				KeyMetrics: map[string]any{
					"avgDailyTokens":       math.Round(rollup.AvgDailyTokens),
					"estimatedMonthlyCost": monthly.InexactFloat64(),
				},
			},
		})
	}

	return recs
}

// estimateMonthlyCost projects a daily token volume to a 30-day USD
// figure at the flat blended rate.
func estimateMonthlyCost(avgDailyTokens float64) decimal.Decimal {
	daily := decimal.NewFromFloat(avgDailyTokens)
	return daily.
		Mul(decimal.NewFromInt(30)).
		Div(decimal.NewFromInt(1000)).
		Mul(costPerThousandTokens).
		Round(2)
}
