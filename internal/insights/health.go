package insights

import (
	"context"
	"fmt"
	"math"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

const (
	longSessionMs     = 4 * 60 * 60 * 1000
	breakGapMs        = 5 * 60 * 1000
	healthEventWindow = 100
)

// analyzeHealth estimates burnout risk from session length and break
// behavior across the active cohort.
func (e *Engine) analyzeHealth(ctx context.Context) error {
	sessions, err := e.store.ActiveSessionMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	longSessions := 0
	var longSessionHours float64
	var activeMs, breakMs float64
	for i := range sessions {
		m := &sessions[i]
		if m.DurationMs > longSessionMs {
			longSessions++
			longSessionHours += float64(m.DurationMs) / 3_600_000
		}
		activeMs += float64(m.DurationMs)

		events, err := e.store.RecentSessionEvents(ctx, m.SessionID, healthEventWindow)
		if err != nil {
			return fmt.Errorf("failed to load events for %s: %w", m.SessionID, err)
		}
		for _, gap := range eventGapsMs(events) {
			if gap > breakGapMs {
				breakMs += gap
			}
		}
	}

	breakFrequency := 0.0
	if activeMs+breakMs > 0 {
		breakFrequency = breakMs / (activeMs + breakMs)
	}
	avgLongSessionHours := 0.0
	if longSessions > 0 {
		avgLongSessionHours = longSessionHours / float64(longSessions)
	}

	risk := burnoutRisk(longSessions, breakFrequency, avgLongSessionHours)

	if longSessions > 0 {
		err := e.insight(ctx, nil, "long-sessions", models.PriorityMedium, map[string]any{
			"count":          longSessions,
			"avgHours":       math.Round(avgLongSessionHours*10) / 10,
			"recommendation": "Several sessions run past four hours. Plan natural stopping points.",
		})
		if err != nil {
			return fmt.Errorf("failed to store long sessions insight: %w", err)
		}
	}

	if breakFrequency < 0.2 {
		err := e.insight(ctx, nil, "insufficient-breaks", models.PriorityMedium, map[string]any{
			"breakFrequency": breakFrequency,
			"recommendation": "Little break time relative to active work. Step away regularly.",
		})
		if err != nil {
			return fmt.Errorf("failed to store breaks insight: %w", err)
		}
	}

	if risk > 0.7 {
		err := e.insight(ctx, nil, "burnout-risk", models.PriorityHigh, map[string]any{
			"risk":                risk,
			"longSessions":        longSessions,
			"breakFrequency":      breakFrequency,
			"avgLongSessionHours": avgLongSessionHours,
			"recommendation":      "Sustained long sessions with few breaks. Reduce daily load.",
		})
		if err != nil {
			return fmt.Errorf("failed to store burnout insight: %w", err)
		}
	}

	return nil
}

// burnoutRisk combines the three warning signs into a [0,1] score.
func burnoutRisk(longSessions int, breakFrequency, avgLongSessionHours float64) float64 {
	risk := 0.0
	if longSessions > 3 {
		risk += 0.3
	}
	if breakFrequency < 0.1 {
		risk += 0.3
	}
	if avgLongSessionHours > 6 {
		risk += 0.4
	}
	if risk > 1 {
		risk = 1
	}
	return risk
}
