package insights

import (
	"context"
	"fmt"
	"math"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

const patternEventWindow = 50

var patternRecommendations = map[string]string{
	"deep-work":       "Long focused session detected. Protect this time and plan breaks deliberately.",
	"rapid-iteration": "High tool throughput. Batch related operations to reduce switching overhead.",
	"exploration":     "Frequent pauses suggest research mode. Capture findings as you go to avoid rework.",
	"learning":        "Mixed activity pattern. More specific prompts can tighten the feedback loop.",
}

// analyzeUsagePatterns classifies each active session into a working
// pattern and records it as a session-scoped insight.
func (e *Engine) analyzeUsagePatterns(ctx context.Context) error {
	sessions, err := e.store.ActiveSessionMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active sessions: %w", err)
	}

	for i := range sessions {
		m := &sessions[i]
		events, err := e.store.RecentSessionEvents(ctx, m.SessionID, patternEventWindow)
		if err != nil {
			return fmt.Errorf("failed to load events for %s: %w", m.SessionID, err)
		}

		pauseFreq := pauseFrequency(events)
		pattern, confidence := classifyPattern(m, pauseFreq)

		priority := models.PriorityLow
		switch {
		case confidence > 0.8 && m.DurationMinutes() > 240:
			priority = models.PriorityHigh
		case confidence > 0.6:
			priority = models.PriorityMedium
		}

		sessionID := m.SessionID
		err = e.insight(ctx, &sessionID, "usage-pattern", priority, map[string]any{
			"pattern":    pattern,
			"confidence": confidence,
			"characteristics": map[string]any{
				"avgSessionDuration": math.Round(m.DurationMinutes()),
				"tokenVelocity":      m.TokensPerMinute,
				"toolUsageRatio":     m.ToolRatio(),
				"pauseFrequency":     pauseFreq,
			},
			"recommendation": patternRecommendations[pattern],
		})
		if err != nil {
			return fmt.Errorf("failed to store usage pattern insight: %w", err)
		}
	}

	return nil
}

// classifyPattern applies the pattern rules in priority order.
func classifyPattern(m *models.SessionMetrics, pauseFreq float64) (string, float64) {
	duration := m.DurationMinutes()
	velocity := m.TokensPerMinute
	ratio := m.ToolRatio()

	switch {
	case duration > 240 && velocity < 10 && ratio < 0.3:
		return "deep-work", 0.8
	case ratio > 0.6 && velocity > 20:
		return "rapid-iteration", 0.7
	case pauseFreq > 0.4 && velocity < 15:
		return "exploration", 0.6
	default:
		return "learning", 0.5
	}
}

// pauseFrequency is the fraction of inter-event gaps longer than a
// minute.
func pauseFrequency(events []models.Event) float64 {
	gaps := eventGapsMs(events)
	if len(gaps) == 0 {
		return 0
	}
	pauses := 0
	for _, g := range gaps {
		if g > 60_000 {
			pauses++
		}
	}
	return float64(pauses) / float64(len(gaps))
}
