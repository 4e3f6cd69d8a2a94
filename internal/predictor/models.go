package predictor

import (
	"math"
	"sort"
	"time"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

// Model kinds as persisted in model_snapshots.
const (
	ModelDuration = "session-duration"
	ModelVelocity = "token-velocity"
	ModelQuality  = "quality-predictor"
	ModelAnomaly  = "anomaly-detector"
)

// Bounds is the normal range for one metric. Values outside it count as
// anomalous.
type Bounds struct {
	Lower float64
	Upper float64
}

func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// HourlyStat is the per-hour-of-day aggregate used for time-aware
// predictions.
type HourlyStat struct {
	Mean  float64
	Count int
}

// StatModel is a descriptive-statistics model for one session metric.
type StatModel struct {
	Mean     float64
	Std      float64
	Accuracy float64
	Samples  int
	Hourly   map[int]HourlyStat
}

// AnomalyModel holds the IQR-derived normal ranges for session behavior.
type AnomalyModel struct {
	Duration   Bounds
	Velocity   Bounds
	EventCount Bounds
	ToolRatio  Bounds
	Accuracy   float64
	Samples    int
}

// ModelSet is one immutable generation of trained models. A new set is
// built on every training cycle and swapped in atomically.
type ModelSet struct {
	Duration  StatModel
	Velocity  StatModel
	Quality   StatModel
	Anomaly   AnomalyModel
	TrainedAt int64
}

// DefaultModelSet returns the models used before any history exists.
func DefaultModelSet() *ModelSet {
	return &ModelSet{
		Duration: StatModel{Mean: 60, Std: 30, Accuracy: 0.5},
		Velocity: StatModel{Mean: 10, Std: 5, Accuracy: 0.5},
		Quality:  StatModel{Mean: 70, Std: 15, Accuracy: 0.6},
		Anomaly: AnomalyModel{
			Duration:   Bounds{Lower: 5, Upper: 300},
			Velocity:   Bounds{Lower: 0.1, Upper: 50},
			EventCount: Bounds{Lower: 1, Upper: 1000},
			ToolRatio:  Bounds{Lower: 0, Upper: 1},
			Accuracy:   0.5,
		},
	}
}

// Snapshots renders the set as persistable per-model metadata rows.
func (s *ModelSet) Snapshots() []models.ModelSnapshot {
	return []models.ModelSnapshot{
		{ModelType: ModelDuration, Accuracy: s.Duration.Accuracy, LastTrained: s.TrainedAt, TrainingDataSize: s.Duration.Samples},
		{ModelType: ModelVelocity, Accuracy: s.Velocity.Accuracy, LastTrained: s.TrainedAt, TrainingDataSize: s.Velocity.Samples},
		{ModelType: ModelQuality, Accuracy: s.Quality.Accuracy, LastTrained: s.TrainedAt, TrainingDataSize: s.Quality.Samples},
		{ModelType: ModelAnomaly, Accuracy: s.Anomaly.Accuracy, LastTrained: s.TrainedAt, TrainingDataSize: s.Anomaly.Samples},
	}
}

// buildModelSet trains a fresh generation from session history. Metrics
// with no positive samples keep their default model.
func buildModelSet(sessions []models.SessionMetrics, trainedAt time.Time) *ModelSet {
	set := DefaultModelSet()
	set.TrainedAt = trainedAt.UnixMilli()

	var durations, velocities, qualities []float64
	var eventCounts, toolRatios []float64
	for i := range sessions {
		m := &sessions[i]
		if d := m.DurationMinutes(); d > 0 {
			durations = append(durations, d)
		}
		if m.TokensPerMinute > 0 {
			velocities = append(velocities, m.TokensPerMinute)
		}
		if m.QualityScore > 0 {
			qualities = append(qualities, m.QualityScore)
		}
		eventCounts = append(eventCounts, float64(m.EventCount))
		toolRatios = append(toolRatios, m.ToolRatio())
	}

	if len(durations) > 0 {
		mean, std := meanStd(durations)
		set.Duration = StatModel{
			Mean:     mean,
			Std:      std,
			Accuracy: 0.75,
			Samples:  len(durations),
			Hourly:   hourlyStats(sessions, func(m *models.SessionMetrics) float64 { return m.DurationMinutes() }),
		}
	}
	if len(velocities) > 0 {
		mean, std := meanStd(velocities)
		set.Velocity = StatModel{
			Mean:     mean,
			Std:      std,
			Accuracy: 0.70,
			Samples:  len(velocities),
			Hourly:   hourlyStats(sessions, func(m *models.SessionMetrics) float64 { return m.TokensPerMinute }),
		}
	}
	if len(qualities) > 0 {
		mean, std := meanStd(qualities)
		set.Quality = StatModel{Mean: mean, Std: std, Accuracy: 0.65, Samples: len(qualities)}
	}
	if len(sessions) > 0 {
		set.Anomaly = AnomalyModel{
			Duration:   outlierBounds(durations, Bounds{Lower: 0, Upper: 100}),
			Velocity:   outlierBounds(velocities, Bounds{Lower: 0, Upper: 100}),
			EventCount: outlierBounds(eventCounts, Bounds{Lower: 0, Upper: 100}),
			ToolRatio:  outlierBounds(toolRatios, Bounds{Lower: 0, Upper: 100}),
			Accuracy:   0.80,
			Samples:    len(sessions),
		}
	}

	return set
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(values)))
	return mean, std
}

// hourlyStats buckets a metric by the local hour each session started.
func hourlyStats(sessions []models.SessionMetrics, value func(*models.SessionMetrics) float64) map[int]HourlyStat {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i := range sessions {
		v := value(&sessions[i])
		if v <= 0 {
			continue
		}
		hour := time.UnixMilli(sessions[i].StartTime).Hour()
		sums[hour] += v
		counts[hour]++
	}

	stats := make(map[int]HourlyStat, len(sums))
	for hour, sum := range sums {
		stats[hour] = HourlyStat{Mean: sum / float64(counts[hour]), Count: counts[hour]}
	}
	return stats
}

// outlierBounds computes Tukey-fence bounds (1.5 IQR) over the values.
// The lower fence never goes negative.
func outlierBounds(values []float64, fallback Bounds) Bounds {
	if len(values) == 0 {
		return fallback
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := sorted[len(sorted)/4]
	q3 := sorted[len(sorted)*3/4]
	iqr := q3 - q1

	lower := q1 - 1.5*iqr
	if lower < 0 {
		lower = 0
	}
	return Bounds{Lower: lower, Upper: q3 + 1.5*iqr}
}
