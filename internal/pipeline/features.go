package pipeline

import (
	"time"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// extractFeatures computes the feature rows for one event. The base
// features are always present; the contextual ones need at least two
// recent events (chronological, the new event included).
func extractFeatures(event *models.Event, recent []models.Event) []models.SessionFeature {
	ts := time.UnixMilli(event.Timestamp)

	features := []models.SessionFeature{
		feature(event, "hour_of_day", float64(ts.Hour())),
		feature(event, "day_of_week", float64(ts.Weekday())),
		feature(event, "event_type_numeric", float64(event.EventType.Code())),
		feature(event, "payload_complexity", payloadComplexity(event.Payload)),
	}

	if len(recent) >= 2 {
		features = append(features, contextFeatures(event, recent)...)
	}

	return features
}

func contextFeatures(event *models.Event, recent []models.Event) []models.SessionFeature {
	gaps := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		gaps = append(gaps, float64(recent[i].Timestamp-recent[i-1].Timestamp))
	}

	var sum float64
	maxGap := gaps[0]
	minGap := gaps[0]
	for _, g := range gaps {
		sum += g
		if g > maxGap {
			maxGap = g
		}
		if g < minGap {
			minGap = g
		}
	}
	avgGap := sum / float64(len(gaps))

	kinds := make(map[models.EventType]struct{}, len(recent))
	toolEvents := 0
	for _, ev := range recent {
		kinds[ev.EventType] = struct{}{}
		if ev.EventType.IsToolUse() {
			toolEvents++
		}
	}

	spanMs := float64(recent[len(recent)-1].Timestamp - recent[0].Timestamp)
	velocity := 0.0
	if spanMs > 0 {
		velocity = float64(len(recent)) / (spanMs / 60000.0)
	}

	return []models.SessionFeature{
		feature(event, "avg_time_gap", avgGap),
		feature(event, "max_time_gap", maxGap),
		feature(event, "min_time_gap", minGap),
		feature(event, "event_type_diversity", float64(len(kinds))),
		feature(event, "recent_event_velocity", velocity),
		feature(event, "tool_usage_ratio", float64(toolEvents)/float64(len(recent))),
	}
}

func feature(event *models.Event, name string, value float64) models.SessionFeature {
	return models.SessionFeature{
		SessionID:  event.SessionID,
		Name:       name,
		Value:      value,
		ComputedAt: event.Timestamp,
	}
}
