package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// analyzeProductivityTrends looks at the last week of sessions for peak
// hours and session-length sweet spots.
func (e *Engine) analyzeProductivityTrends(ctx context.Context) error {
	since := e.now().Add(-7 * 24 * time.Hour).UnixMilli()
	sessions, err := e.store.SessionMetricsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to load weekly sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil
	}

	if peaks := peakProductivityHours(sessions); len(peaks) > 0 {
		err := e.insight(ctx, nil, "peak-hours", models.PriorityMedium, map[string]any{
			"peakHours":      peaks,
			"sessionCount":   len(sessions),
			"recommendation": "Schedule demanding work during your peak hours.",
		})
		if err != nil {
			return fmt.Errorf("failed to store peak hours insight: %w", err)
		}
	}

	if len(sessions) >= 3 {
		if err := e.analyzeOptimalDuration(ctx, sessions); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) analyzeOptimalDuration(ctx context.Context, sessions []models.SessionMetrics) error {
	var totalQuality, totalDuration float64
	for i := range sessions {
		totalQuality += sessions[i].QualityScore
		totalDuration += sessions[i].DurationMinutes()
	}
	avgQuality := totalQuality / float64(len(sessions))
	avgDuration := totalDuration / float64(len(sessions))

	var optimal float64
	switch {
	case avgQuality > 70 && avgDuration < 120:
		optimal = avgDuration * 1.5
	case avgQuality < 50 && avgDuration > 90:
		optimal = avgDuration * 0.7
	default:
		return nil
	}

	return e.insight(ctx, nil, "session-duration-optimization", models.PriorityMedium, map[string]any{
		"currentAvgMinutes": math.Round(avgDuration),
		"optimalMinutes":    math.Round(optimal),
		"avgQuality":        math.Round(avgQuality),
	})
}

// peakProductivityHours scores each start hour by quality-weighted token
// velocity and returns the top three positive hours, best first.
func peakProductivityHours(sessions []models.SessionMetrics) []int {
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
	peaks := make([]int, len(scored))
	for i, s := range scored {
		peaks[i] = s.hour
	}
	return peaks
}
