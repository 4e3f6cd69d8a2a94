package insights

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// behaviorBaseline is what "normal" looks like, derived from the current
// set of active sessions.
type behaviorBaseline struct {
	MaxNormalDurationMs float64
	MaxNormalVelocity   float64
	MinNormalEventRate  float64
}

// Fallback baseline when no session history is available.
var defaultBaseline = behaviorBaseline{
	MaxNormalDurationMs: 4 * 60 * 60 * 1000,
	MaxNormalVelocity:   100,
	MinNormalEventRate:  1,
}

// detectAnomalies compares each active session against the cohort
// baseline and raises alerts (with mirror insights) for deviations.
func (e *Engine) detectAnomalies(ctx context.Context) error {
	sessions, err := e.store.ActiveSessionMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	baseline := baselineFrom(sessions)

	for i := range sessions {
		m := &sessions[i]

		if float64(m.DurationMs) > baseline.MaxNormalDurationMs {
			severity := models.SeverityMedium
			if float64(m.DurationMs) > 2*baseline.MaxNormalDurationMs {
				severity = models.SeverityHigh
			}
			err := e.raiseAlert(ctx, m.SessionID, "duration", severity,
				fmt.Sprintf("Session running for %.0f minutes, well beyond the normal range.", m.DurationMinutes()),
				"Consider wrapping up or splitting the work into a fresh session.")
			if err != nil {
				return err
			}
		}

		if m.TokensPerMinute > baseline.MaxNormalVelocity {
			severity := models.SeverityMedium
			if m.TokensPerMinute > 2*baseline.MaxNormalVelocity {
				severity = models.SeverityHigh
			}
			err := e.raiseAlert(ctx, m.SessionID, "velocity", severity,
				fmt.Sprintf("Token velocity of %.1f tokens/min is unusually high.", m.TokensPerMinute),
				"Check for runaway loops or overly broad prompts.")
			if err != nil {
				return err
			}
		}

		if m.EventsPerMinute() < baseline.MinNormalEventRate {
			err := e.raiseAlert(ctx, m.SessionID, "activity-pattern", models.SeverityLow,
				fmt.Sprintf("Event rate of %.2f events/min is below the normal range.", m.EventsPerMinute()),
				"The session may be stalled. Check whether it is still making progress.")
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *Engine) raiseAlert(ctx context.Context, sessionID, anomalyType string, severity models.Severity, description, action string) error {
	alert := models.AnomalyAlert{
		ID:                uuid.New().String(),
		SessionID:         sessionID,
		AnomalyType:       anomalyType,
		Severity:          severity,
		Description:       description,
		RecommendedAction: action,
		DetectedAt:        e.now().UnixMilli(),
	}
	if err := e.store.InsertAlert(ctx, &alert); err != nil {
		return fmt.Errorf("failed to store %s alert: %w", anomalyType, err)
	}

	priority := models.PriorityMedium
	if severity == models.SeverityHigh {
		priority = models.PriorityHigh
	}
	err := e.insight(ctx, &alert.SessionID, "anomaly", priority, map[string]any{
		"alertId":           alert.ID,
		"anomalyType":       anomalyType,
		"severity":          string(severity),
		"description":       description,
		"recommendedAction": action,
	})
	if err != nil {
		return fmt.Errorf("failed to mirror %s alert as insight: %w", anomalyType, err)
	}

	return nil
}

// baselineFrom derives the normal ranges from the active cohort.
func baselineFrom(sessions []models.SessionMetrics) behaviorBaseline {
	if len(sessions) == 0 {
		return defaultBaseline
	}

	var totalDuration, totalVelocity, totalEventRate float64
	for i := range sessions {
		totalDuration += float64(sessions[i].DurationMs)
		totalVelocity += sessions[i].TokensPerMinute
		totalEventRate += sessions[i].EventsPerMinute()
	}
	n := float64(len(sessions))

	return behaviorBaseline{
		MaxNormalDurationMs: 2 * totalDuration / n,
		MaxNormalVelocity:   3 * totalVelocity / n,
		MinNormalEventRate:  0.3 * totalEventRate / n,
	}
}
