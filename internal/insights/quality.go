package insights

import (
	"context"
	"fmt"
	"math"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

const qualityEventWindow = 200

// CalculateSessionQuality produces the on-demand quality report for one
// session. Returns nil when the session is unknown.
func (e *Engine) CalculateSessionQuality(ctx context.Context, sessionID string) (*models.SessionQualityMetrics, error) {
	metrics, err := e.store.GetSessionMetrics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session metrics: %w", err)
	}
	if metrics == nil {
		return nil, nil
	}

	events, err := e.store.RecentSessionEvents(ctx, sessionID, qualityEventWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load session events: %w", err)
	}

	factors := models.QualityFactors{
		Consistency:    consistencyScore(events),
		Efficiency:     efficiencyScore(metrics),
		FocusTime:      focusScore(events),
		ErrorRate:      errorRateFromEvents(events),
		CompletionRate: completionScore(events),
	}

	score := factors.Consistency*0.2 +
		factors.Efficiency*0.25 +
		factors.FocusTime*0.2 +
		(100-factors.ErrorRate)*0.15 +
		factors.CompletionRate*0.2

	return &models.SessionQualityMetrics{
		SessionID:    sessionID,
		QualityScore: math.Round(score),
		Factors:      factors,
		Suggestions:  qualitySuggestions(factors),
	}, nil
}

// consistencyScore rewards a steady event rhythm. Penalty grows with the
// standard deviation of inter-event gaps.
func consistencyScore(events []models.Event) float64 {
	gaps := eventGapsMs(events)
	if len(gaps) == 0 {
		return 50
	}

	var sum float64
	for _, g := range gaps {
		sum += g
	}
	mean := sum / float64(len(gaps))

	var sq float64
	for _, g := range gaps {
		d := g - mean
		sq += d * d
	}
	variance := sq / float64(len(gaps))

	return clamp(100 - math.Sqrt(variance)/1000)
}

// efficiencyScore blends tool-usage balance with token economy.
func efficiencyScore(m *models.SessionMetrics) float64 {
	balance := 100 - math.Abs(m.ToolRatio()-0.5)*100

	tokensPerEvent := 0.0
	if m.EventCount > 0 {
		tokensPerEvent = float64(m.TotalTokens) / float64(m.EventCount)
	}
	tokenEfficiency := clamp(100 - (tokensPerEvent-100)/10)

	return (balance + tokenEfficiency) / 2
}

// focusScore penalizes long pauses relative to total activity.
func focusScore(events []models.Event) float64 {
	gaps := eventGapsMs(events)
	if len(gaps) == 0 {
		return 50
	}

	longPauses := 0
	for _, g := range gaps {
		if g > breakGapMs {
			longPauses++
		}
	}

	return clamp(100 - float64(longPauses)/float64(len(events))*200)
}

// errorRateFromEvents is a placeholder until events carry failure
// markers. TODO: derive from PostToolUse payload error fields once the
// producers populate them.
func errorRateFromEvents(events []models.Event) float64 {
	_ = events
	return 0
}

// completionScore treats each Stop as a finished interaction and scores
// how many prompts reached one.
func completionScore(events []models.Event) float64 {
	prompts, stops := 0, 0
	for _, ev := range events {
		switch ev.EventType {
		case models.EventUserPromptSubmit:
			prompts++
		case models.EventStop:
			stops++
		}
	}
	if prompts == 0 {
		return 50
	}
	return math.Min(100, float64(stops)/float64(prompts)*100)
}

func qualitySuggestions(f models.QualityFactors) []string {
	var suggestions []string
	if f.Consistency < 60 {
		suggestions = append(suggestions, "Work in steadier intervals to build rhythm.")
	}
	if f.Efficiency < 60 {
		suggestions = append(suggestions, "Balance tool usage and keep prompts token-lean.")
	}
	if f.FocusTime < 60 {
		suggestions = append(suggestions, "Reduce long pauses or split work into shorter sessions.")
	}
	if f.ErrorRate > 20 {
		suggestions = append(suggestions, "High failure rate. Review tool inputs before running them.")
	}
	if f.CompletionRate < 60 {
		suggestions = append(suggestions, "Many prompts go unfinished. Scope requests so they complete.")
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Great session quality! Keep up the current working style.")
	}
	return suggestions
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
