package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// USD per 1K tokens at the blended rate used for projections.
var costPerThousandTokens = decimal.NewFromFloat(0.015)

func (e *Engine) since(days int) int64 {
	return e.now().Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()
}

func timespan(days int) string {
	return fmt.Sprintf("%d days", days)
}

func (e *Engine) efficiencyRecommendations(ctx context.Context) ([]models.OptimizationRecommendation, error) {
	behavior, err := e.store.GetBehaviorRollup(ctx, e.since(7))
	if err != nil {
		return nil, fmt.Errorf("failed to load behavior rollup: %w", err)
	}
	if behavior.SessionCount == 0 || behavior.AvgToolUsageRatio >= 0.3 {
		return nil, nil
	}

	return []models.OptimizationRecommendation{{
		Type:            models.RecEfficiency,
		Title:           "Increase Tool Utilization",
		Description:     "Sessions rely mostly on conversation. Leaning on tools for concrete tasks usually shortens them.",
		PotentialImpact: models.ImpactHigh,
		ActionItems: []string{
			"Hand file edits and searches to tools instead of describing them",
			"Ask for runnable commands rather than explanations",
		},
		BasedOnData: models.BasedOnData{
			SessionCount: behavior.SessionCount,
			Timespan:     timespan(7),
			KeyMetrics:   map[string]any{"avgToolUsageRatio": behavior.AvgToolUsageRatio},
		},
	}}, nil
}

func (e *Engine) productivityRecommendations(ctx context.Context) ([]models.OptimizationRecommendation, error) {
	sessions, err := e.store.SessionMetricsSince(ctx, e.since(14))
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	var recs []models.OptimizationRecommendation

	if peaks := peakHours(sessions); len(peaks) > 0 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecProductivity,
			Title:           "Schedule Around Peak Hours",
			Description:     fmt.Sprintf("Output is consistently strongest around %02d:00. Put demanding work there.", peaks[0]),
			PotentialImpact: models.ImpactMedium,
			ActionItems: []string{
				"Block peak hours for focused sessions",
				"Move routine work outside them",
			},
			BasedOnData: models.BasedOnData{
				SessionCount: len(sessions),
				Timespan:     timespan(14),
				KeyMetrics:   map[string]any{"peakHours": peaks},
			},
		})
	}

	if rec, ok := e.durationRecommendation(sessions); ok {
		recs = append(recs, rec)
	}

	return recs, nil
}

func (e *Engine) durationRecommendation(sessions []models.SessionMetrics) (models.OptimizationRecommendation, bool) {
	var totalQuality, totalDuration float64
	for i := range sessions {
		totalQuality += sessions[i].QualityScore
		totalDuration += sessions[i].DurationMinutes()
	}
	avgQuality := totalQuality / float64(len(sessions))
	avgDuration := totalDuration / float64(len(sessions))

	optimal := avgDuration
	switch {
	case avgQuality > 70 && avgDuration < 120:
		optimal = avgDuration * 1.5
	case avgQuality < 50 && avgDuration > 90:
		optimal = avgDuration * 0.7
	}
	if math.Abs(optimal-avgDuration) <= 30 {
		return models.OptimizationRecommendation{}, false
	}

	direction := "Longer"
	if optimal < avgDuration {
		direction = "Shorter"
	}
	return models.OptimizationRecommendation{
		Type:            models.RecProductivity,
		Title:           fmt.Sprintf("%s Sessions Would Help", direction),
		Description:     fmt.Sprintf("Quality trends suggest sessions around %.0f minutes instead of the current %.0f.", optimal, avgDuration),
		PotentialImpact: models.ImpactMedium,
		ActionItems: []string{
			fmt.Sprintf("Target roughly %.0f-minute sessions", optimal),
			"Review quality after a week of the new length",
		},
		BasedOnData: models.BasedOnData{
			SessionCount: len(sessions),
			Timespan:     timespan(14),
			KeyMetrics:   map[string]any{"avgQuality": avgQuality, "avgDurationMinutes": avgDuration},
		},
	}, true
}

func (e *Engine) costRecommendations(ctx context.Context) ([]models.OptimizationRecommendation, error) {
	cost, err := e.store.GetCostRollup(ctx, e.since(7))
	if err != nil {
		return nil, fmt.Errorf("failed to load cost rollup: %w", err)
	}
	if cost.SessionCount == 0 {
		return nil, nil
	}

	var recs []models.OptimizationRecommendation

	if cost.AvgDailyTokens > 30_000 {
		monthly := monthlyCost(cost.AvgDailyTokens)
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecCost,
			Title:           "Reduce Token Consumption",
			Description:     fmt.Sprintf("Current usage projects to about $%s per month. Trimming context would cut this.", monthly.StringFixed(2)),
			PotentialImpact: models.ImpactHigh,
			ActionItems: []string{
				"Prune stale context from long conversations",
				"Cache and reuse common prompt fragments",
			},
			BasedOnData: models.BasedOnData{
				SessionCount: cost.SessionCount,
				Timespan:     timespan(7),
				KeyMetrics: map[string]any{
					"avgDailyTokens":       cost.AvgDailyTokens,
					"projectedMonthlyCost": monthly.InexactFloat64(),
				},
			},
		})
	}

	if cost.AvgTokensPerPrompt > 2000 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecCost,
			Title:           "Make Prompts More Efficient",
			Description:     fmt.Sprintf("Prompts average %.0f tokens. Smaller, focused prompts cost less and answer faster.", cost.AvgTokensPerPrompt),
			PotentialImpact: models.ImpactMedium,
			ActionItems: []string{
				"Split multi-part questions into separate prompts",
				"Drop boilerplate from recurring prompts",
			},
			BasedOnData: models.BasedOnData{
				SessionCount: cost.SessionCount,
				Timespan:     timespan(7),
				KeyMetrics:   map[string]any{"avgTokensPerPrompt": cost.AvgTokensPerPrompt},
			},
		})
	}

	return recs, nil
}

func (e *Engine) healthRecommendations(ctx context.Context) ([]models.OptimizationRecommendation, error) {
	sessions, err := e.store.SessionMetricsSince(ctx, e.since(14))
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	var totalMinutes float64
	longSessions := 0
	afterHours := 0
	for i := range sessions {
		m := &sessions[i]
		totalMinutes += m.DurationMinutes()
		if m.DurationMs > 4*60*60*1000 {
			longSessions++
		}
		hour := time.UnixMilli(m.StartTime).Hour()
		if hour < 9 || hour >= 18 {
			afterHours++
		}
	}
	avgMinutes := totalMinutes / float64(len(sessions))
	afterHoursRatio := float64(afterHours) / float64(len(sessions))

	basedOn := models.BasedOnData{
		SessionCount: len(sessions),
		Timespan:     timespan(14),
		KeyMetrics: map[string]any{
			"avgSessionMinutes": avgMinutes,
			"longSessions":      longSessions,
			"afterHoursRatio":   afterHoursRatio,
		},
	}

	var recs []models.OptimizationRecommendation

	if avgMinutes > 240 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecHealth,
			Title:           "Take Regular Breaks",
			Description:     fmt.Sprintf("Sessions average %.0f minutes. Breaking them up preserves quality over the day.", avgMinutes),
			PotentialImpact: models.ImpactMedium,
			ActionItems:     []string{"Plan a break every 90 minutes", "End sessions at natural milestones"},
			BasedOnData:     basedOn,
		})
	}

	if risk := workloadRisk(avgMinutes, afterHoursRatio, longSessions); risk > 0.6 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecHealth,
			Title:           "Reduce Workload",
			Description:     "Session length and timing point to an unsustainable pace.",
			PotentialImpact: models.ImpactHigh,
			ActionItems:     []string{"Cap daily session time", "Defer non-urgent work"},
			BasedOnData:     basedOn,
		})
	}

	if afterHoursRatio > 0.3 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecHealth,
			Title:           "Limit After-Hours Work",
			Description:     fmt.Sprintf("%.0f%% of sessions start outside 9:00-18:00.", afterHoursRatio*100),
			PotentialImpact: models.ImpactMedium,
			ActionItems:     []string{"Shift recurring work into core hours", "Keep evenings for exceptions only"},
			BasedOnData:     basedOn,
		})
	}

	return recs, nil
}

// workloadRisk mirrors the burnout heuristics on the recommendation side.
func workloadRisk(avgMinutes, afterHoursRatio float64, longSessions int) float64 {
	risk := 0.0
	if avgMinutes > 180 {
		risk += 0.3
	}
	if afterHoursRatio > 0.4 {
		risk += 0.2
	}
	if longSessions > 5 {
		risk += 0.3
	}
	return risk
}

func (e *Engine) learningRecommendations(ctx context.Context) ([]models.OptimizationRecommendation, error) {
	usage, err := e.store.EventKindUsage(ctx, e.since(30))
	if err != nil {
		return nil, fmt.Errorf("failed to load event usage: %w", err)
	}
	behavior, err := e.store.GetBehaviorRollup(ctx, e.since(30))
	if err != nil {
		return nil, fmt.Errorf("failed to load behavior rollup: %w", err)
	}
	if behavior.SessionCount == 0 {
		return nil, nil
	}

	basedOn := models.BasedOnData{
		SessionCount: behavior.SessionCount,
		Timespan:     timespan(30),
		KeyMetrics: map[string]any{
			"eventKindsUsed":       len(usage),
			"avgPromptsPerSession": behavior.AvgPromptsPerSession,
		},
	}

	var recs []models.OptimizationRecommendation

	if kindAdoption(usage) < 1 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecEfficiency,
			Title:           "Explore Unused Capabilities",
			Description:     "Some event kinds never show up in your history. Parts of the workflow are going unused.",
			PotentialImpact: models.ImpactMedium,
			ActionItems:     []string{"Try subagent-driven workflows", "Enable notifications for long-running tasks"},
			BasedOnData:     basedOn,
		})
	}

	if behavior.AvgPromptsPerSession > 8 {
		recs = append(recs, models.OptimizationRecommendation{
			Type:            models.RecEfficiency,
			Title:           "Automate Repetitive Patterns",
			Description:     fmt.Sprintf("Sessions average %.1f prompts. Recurring prompt chains are automation candidates.", behavior.AvgPromptsPerSession),
			PotentialImpact: models.ImpactHigh,
			ActionItems:     []string{"Script the most common prompt sequences", "Create reusable templates for recurring tasks"},
			BasedOnData:     basedOn,
		})
	}

	return recs, nil
}

// kindAdoption is the fraction of known event kinds seen at least once.
func kindAdoption(usage map[models.EventType]int) float64 {
	seen := 0
	for _, kind := range models.KnownEventTypes {
		if usage[kind] > 0 {
			seen++
		}
	}
	return float64(seen) / float64(len(models.KnownEventTypes))
}

// peakHours ranks start hours by quality-weighted velocity and returns
// the top three, best first.
func peakHours(sessions []models.SessionMetrics) []int {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i := range sessions {
		m := &sessions[i]
		quality := m.QualityScore
		if quality == 0 {
			quality = 50
		}
		hour := time.UnixMilli(m.StartTime).Hour()
		sums[hour] += quality * m.TokensPerMinute / 100
		counts[hour]++
	}

	type hourScore struct {
		hour  int
		score float64
	}
	var scored []hourScore
	for hour, sum := range sums {
		mean := sum / float64(counts[hour])
		if mean > 0 {
			scored = append(scored, hourScore{hour, mean})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].hour < scored[j].hour
	})

	if len(scored) > 3 {
		scored = scored[:3]
	}
	hours := make([]int, len(scored))
	for i, s := range scored {
		hours[i] = s.hour
	}
	return hours
}

// monthlyCost projects daily token volume to a 30-day USD figure.
func monthlyCost(avgDailyTokens float64) decimal.Decimal {
	return decimal.NewFromFloat(avgDailyTokens).
		Mul(decimal.NewFromInt(30)).
		Div(decimal.NewFromInt(1000)).
		Mul(costPerThousandTokens).
		Round(2)
}
