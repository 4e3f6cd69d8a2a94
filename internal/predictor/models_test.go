package predictor

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

func TestOutlierBounds(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b := outlierBounds(values, Bounds{Lower: 0, Upper: 100})

	// Q1=3, Q3=8, IQR=5.
	if b.Upper != 15.5 {
		t.Errorf("Upper = %v, want 15.5", b.Upper)
	}
	if b.Lower != 0 {
		t.Errorf("Lower = %v, want 0 (clamped)", b.Lower)
	}
}

func TestOutlierBoundsEmptyFallback(t *testing.T) {
	b := outlierBounds(nil, Bounds{Lower: 0, Upper: 100})
	if b.Lower != 0 || b.Upper != 100 {
		t.Errorf("bounds = %+v, want fallback {0 100}", b)
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Errorf("mean = %v, want 5", mean)
	}
	if std != 2 {
		t.Errorf("std = %v, want 2", std)
	}
}

func TestDefaultModelSet(t *testing.T) {
	set := DefaultModelSet()

	if set.Duration.Mean != 60 || set.Duration.Std != 30 || set.Duration.Accuracy != 0.5 {
		t.Errorf("duration defaults = %+v", set.Duration)
	}
	if set.Velocity.Mean != 10 || set.Velocity.Std != 5 || set.Velocity.Accuracy != 0.5 {
		t.Errorf("velocity defaults = %+v", set.Velocity)
	}
	if set.Quality.Mean != 70 || set.Quality.Std != 15 || set.Quality.Accuracy != 0.6 {
		t.Errorf("quality defaults = %+v", set.Quality)
	}
	if set.Anomaly.Duration != (Bounds{Lower: 5, Upper: 300}) {
		t.Errorf("anomaly duration bounds = %+v", set.Anomaly.Duration)
	}
	if set.Anomaly.EventCount != (Bounds{Lower: 1, Upper: 1000}) {
		t.Errorf("anomaly event bounds = %+v", set.Anomaly.EventCount)
	}
}

func TestBuildModelSetKeepsDefaultsWithoutHistory(t *testing.T) {
	trainedAt := time.UnixMilli(1_700_000_000_000)
	set := buildModelSet(nil, trainedAt)

	want := DefaultModelSet()
	if !reflect.DeepEqual(set.Duration, want.Duration) {
		t.Errorf("Duration = %+v, want default %+v", set.Duration, want.Duration)
	}
	if set.Anomaly != want.Anomaly {
		t.Errorf("Anomaly = %+v, want default %+v", set.Anomaly, want.Anomaly)
	}
	if set.TrainedAt != trainedAt.UnixMilli() {
		t.Errorf("TrainedAt = %d, want %d", set.TrainedAt, trainedAt.UnixMilli())
	}
}

func TestBuildModelSetFromHistory(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local).UnixMilli()
	sessions := []models.SessionMetrics{
		{SessionID: "a", DurationMs: 60 * 60_000, TokensPerMinute: 20, QualityScore: 80, EventCount: 100, ToolUsageCount: 50, StartTime: start},
		{SessionID: "b", DurationMs: 30 * 60_000, TokensPerMinute: 10, QualityScore: 60, EventCount: 50, ToolUsageCount: 10, StartTime: start},
	}

	set := buildModelSet(sessions, time.UnixMilli(start))

	if set.Duration.Mean != 45 {
		t.Errorf("Duration.Mean = %v, want 45", set.Duration.Mean)
	}
	if set.Duration.Accuracy != 0.75 {
		t.Errorf("Duration.Accuracy = %v, want 0.75", set.Duration.Accuracy)
	}
	if set.Duration.Samples != 2 {
		t.Errorf("Duration.Samples = %d, want 2", set.Duration.Samples)
	}
	if set.Velocity.Mean != 15 {
		t.Errorf("Velocity.Mean = %v, want 15", set.Velocity.Mean)
	}
	if set.Quality.Mean != 70 {
		t.Errorf("Quality.Mean = %v, want 70", set.Quality.Mean)
	}
	if set.Anomaly.Accuracy != 0.80 {
		t.Errorf("Anomaly.Accuracy = %v, want 0.80", set.Anomaly.Accuracy)
	}

	hour := time.UnixMilli(start).Hour()
	stat, ok := set.Duration.Hourly[hour]
	if !ok {
		t.Fatalf("missing hourly stat for hour %d", hour)
	}
	if stat.Mean != 45 || stat.Count != 2 {
		t.Errorf("hourly stat = %+v, want mean 45 count 2", stat)
	}
}

func TestHourlyStatsSkipsNonPositive(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local).UnixMilli()
	sessions := []models.SessionMetrics{
		{DurationMs: 0, StartTime: start},
		{DurationMs: 60 * 60_000, StartTime: start},
	}

	stats := hourlyStats(sessions, func(m *models.SessionMetrics) float64 { return m.DurationMinutes() })
	hour := time.UnixMilli(start).Hour()
	if stats[hour].Count != 1 {
		t.Errorf("Count = %d, want 1", stats[hour].Count)
	}
	if math.Abs(stats[hour].Mean-60) > 1e-9 {
		t.Errorf("Mean = %v, want 60", stats[hour].Mean)
	}
}
