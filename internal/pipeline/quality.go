package pipeline

import "github.com/AgentPulseDev/agentpulse-web/internal/models"

// qualityScore rates a session heuristically on a 0-100 scale. A fresh
// session with no elapsed time counts as short and starts at 80.
func qualityScore(m *models.SessionMetrics) float64 {
	score := 100.0

	hours := float64(m.DurationMs) / 3600000.0
	if hours < 0.1 {
		score -= 20
	} else if hours > 8 {
		score -= 30
	}

	if m.EventCount > 0 && m.DurationMs > 0 {
		eventsPerHour := float64(m.EventCount) / hours
		if eventsPerHour < 10 {
			score -= 15
		} else if eventsPerHour > 1000 {
			score -= 25
		}
	}

	ratio := m.ToolRatio()
	if ratio > 0.3 && ratio < 0.8 {
		score += 10
	}

	return clampScore(score)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
