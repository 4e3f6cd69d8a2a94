package predictor

import (
	"time"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// featureVector is the per-session input to all four predictors, built
// from live metrics plus the latest value of each extracted feature.
type featureVector struct {
	HourOfDay        int
	DayOfWeek        int
	DurationMinutes  float64
	TokenVelocity    float64
	ToolRatio        float64
	AvgTimeGapMs     float64
	ErrorRate        float64
	Productivity     float64
	PromptComplexity float64
}

// buildFeatureVector merges metrics with feature rows. Features are
// ordered oldest first, so the newest value of each name wins. Missing
// features fall back to neutral defaults.
func buildFeatureVector(metrics *models.SessionMetrics, features []models.SessionFeature, now time.Time) featureVector {
	latest := make(map[string]float64, len(features))
	for _, f := range features {
		latest[f.Name] = f.Value
	}

	fv := featureVector{
		HourOfDay:        now.Hour(),
		DayOfWeek:        int(now.Weekday()),
		DurationMinutes:  metrics.DurationMinutes(),
		TokenVelocity:    metrics.TokensPerMinute,
		ToolRatio:        metrics.ToolRatio(),
		PromptComplexity: 1,
	}

	if v, ok := latest["hour_of_day"]; ok {
		fv.HourOfDay = int(v)
	}
	if v, ok := latest["day_of_week"]; ok {
		fv.DayOfWeek = int(v)
	}
	if v, ok := latest["avg_time_gap"]; ok {
		fv.AvgTimeGapMs = v
	}
	if v, ok := latest["error_rate"]; ok {
		fv.ErrorRate = v
	}
	if v, ok := latest["recent_event_velocity"]; ok {
		fv.Productivity = v
	}
	if v, ok := latest["payload_complexity"]; ok {
		fv.PromptComplexity = v
	}

	return fv
}
