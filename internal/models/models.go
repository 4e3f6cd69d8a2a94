package models

// EventType is the enumerated category of an observed lifecycle occurrence.
// Unknown values are accepted at the ingestion boundary and map to feature
// code 0.
type EventType string

const (
	EventPreToolUse       EventType = "PreToolUse"
	EventPostToolUse      EventType = "PostToolUse"
	EventUserPromptSubmit EventType = "UserPromptSubmit"
	EventStop             EventType = "Stop"
	EventSubagentStop     EventType = "SubagentStop"
	EventNotification     EventType = "Notification"
)

// KnownEventTypes lists every event kind the engine assigns a nonzero
// numeric code to.
var KnownEventTypes = []EventType{
	EventPreToolUse,
	EventPostToolUse,
	EventUserPromptSubmit,
	EventStop,
	EventSubagentStop,
	EventNotification,
}

// Code returns the fixed numeric code for this event kind.
// Unknown kinds return 0.
func (t EventType) Code() int {
	switch t {
	case EventPreToolUse:
		return 1
	case EventPostToolUse:
		return 2
	case EventUserPromptSubmit:
		return 3
	case EventStop:
		return 4
	case EventSubagentStop:
		return 5
	case EventNotification:
		return 6
	default:
		return 0
	}
}

// IsToolUse reports whether the event kind is a tool invocation.
func (t EventType) IsToolUse() bool {
	return t == EventPreToolUse || t == EventPostToolUse
}

// IsPrompt reports whether the event kind is a user prompt submission.
func (t EventType) IsPrompt() bool {
	return t == EventUserPromptSubmit
}

// Event is one observed lifecycle occurrence for a session.
// Immutable once stored. Timestamp is epoch milliseconds.
type Event struct {
	ID        int64          `json:"id"`
	SourceApp string         `json:"source_app"`
	SessionID string         `json:"session_id"`
	EventType EventType      `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	Summary   string         `json:"summary,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// SessionMetrics is the running aggregate state for one session,
// upserted by session id on every event. Times are epoch milliseconds.
type SessionMetrics struct {
	SessionID       string  `json:"session_id"`
	DurationMs      int64   `json:"duration_ms"`
	TotalTokens     int64   `json:"total_tokens"`
	TokensPerMinute float64 `json:"tokens_per_minute"`
	EventCount      int     `json:"event_count"`
	ToolUsageCount  int     `json:"tool_usage_count"`
	PromptCount     int     `json:"prompt_count"`
	StartTime       int64   `json:"start_time"`
	EndTime         int64   `json:"end_time"`
	IsActive        bool    `json:"is_active"`
	QualityScore    float64 `json:"quality_score"`
}

// ToolRatio returns tool events over total events, guarded against an
// empty session.
func (m *SessionMetrics) ToolRatio() float64 {
	if m.EventCount <= 0 {
		return 0
	}
	return float64(m.ToolUsageCount) / float64(m.EventCount)
}

// DurationMinutes returns the elapsed session duration in minutes.
func (m *SessionMetrics) DurationMinutes() float64 {
	return float64(m.DurationMs) / 60000.0
}

// EventsPerMinute returns the observed event rate, 0 for zero-length
// sessions.
func (m *SessionMetrics) EventsPerMinute() float64 {
	if m.DurationMs <= 0 {
		return 0
	}
	return float64(m.EventCount) / (float64(m.DurationMs) / 60000.0)
}

// SessionFeature is one named numeric observation at a point in time.
// Feature rows are append-only.
type SessionFeature struct {
	SessionID  string  `json:"session_id"`
	Name       string  `json:"feature_name"`
	Value      float64 `json:"feature_value"`
	ComputedAt int64   `json:"computed_at"`
}

// SessionPrediction is one point prediction for a session.
// Confidence is always within [0, 0.9].
type SessionPrediction struct {
	ID             int64   `json:"id"`
	SessionID      string  `json:"session_id"`
	PredictionType string  `json:"prediction_type"`
	PredictedValue float64 `json:"predicted_value"`
	Confidence     float64 `json:"confidence"`
	CreatedAt      int64   `json:"created_at"`
}

// Priority classifies how urgently an insight should surface.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// SessionInsight is a derived, human-actionable observation.
// SessionID is nil for global insights.
type SessionInsight struct {
	ID          int64          `json:"id"`
	SessionID   *string        `json:"session_id,omitempty"`
	InsightType string         `json:"insight_type"`
	InsightData map[string]any `json:"insight_data"`
	Priority    Priority       `json:"priority"`
	CreatedAt   int64          `json:"created_at"`
}

// Severity grades a detected anomaly.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalyAlert is a detected deviation from baseline behavior.
type AnomalyAlert struct {
	ID                string   `json:"id"`
	SessionID         string   `json:"session_id"`
	AnomalyType       string   `json:"anomaly_type"`
	Severity          Severity `json:"severity"`
	Description       string   `json:"description"`
	RecommendedAction string   `json:"recommended_action"`
	DetectedAt        int64    `json:"detected_at"`
	IsResolved        bool     `json:"is_resolved"`
	ResolvedAt        *int64   `json:"resolved_at,omitempty"`
}

// Impact is the tier of benefit a recommendation promises.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// RecommendationType is the category a recommendation belongs to.
type RecommendationType string

const (
	RecEfficiency   RecommendationType = "efficiency"
	RecProductivity RecommendationType = "productivity"
	RecCost         RecommendationType = "cost"
	RecHealth       RecommendationType = "health"
)

// BasedOnData records the evidence behind a recommendation.
type BasedOnData struct {
	SessionCount int            `json:"session_count"`
	Timespan     string         `json:"timespan"`
	KeyMetrics   map[string]any `json:"key_metrics"`
}

// OptimizationRecommendation is a ranked suggested action.
type OptimizationRecommendation struct {
	ID              string             `json:"id"`
	Type            RecommendationType `json:"type"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	PotentialImpact Impact             `json:"potential_impact"`
	ActionItems     []string           `json:"action_items"`
	BasedOnData     BasedOnData        `json:"based_on_data"`
	CreatedAt       int64              `json:"created_at"`
	IsApplied       bool               `json:"is_applied"`
	AppliedAt       *int64             `json:"applied_at,omitempty"`
}

// ModelSnapshot is the persisted training metadata for one model kind,
// written after each training cycle.
type ModelSnapshot struct {
	ModelType        string  `json:"model_type"`
	Accuracy         float64 `json:"accuracy"`
	LastTrained      int64   `json:"last_trained"`
	TrainingDataSize int     `json:"training_data_size"`
}

// QualityFactors are the five sub-scores behind a session quality report.
// All values are in [0, 100] except ErrorRate which is a percentage of
// failed interactions.
type QualityFactors struct {
	Consistency    float64 `json:"consistency"`
	Efficiency     float64 `json:"efficiency"`
	FocusTime      float64 `json:"focus_time"`
	ErrorRate      float64 `json:"error_rate"`
	CompletionRate float64 `json:"completion_rate"`
}

// SessionQualityMetrics is the on-demand quality report for one session.
type SessionQualityMetrics struct {
	SessionID    string         `json:"session_id"`
	QualityScore float64        `json:"quality_score"`
	Factors      QualityFactors `json:"factors"`
	Suggestions  []string       `json:"suggestions"`
}

// OptimizationRollup aggregates 7-day session metrics for the insight
// engine's recommendation pass.
type OptimizationRollup struct {
	AvgTokensPerTask float64 `json:"avg_tokens_per_task"`
	SessionCount     int     `json:"session_count"`
	AvgDailyTokens   float64 `json:"avg_daily_tokens"`
}

// BehaviorRollup aggregates tool-usage behavior over a window.
type BehaviorRollup struct {
	AvgToolUsageRatio    float64 `json:"avg_tool_usage_ratio"`
	SessionCount         int     `json:"session_count"`
	AvgEventsPerSession  float64 `json:"avg_events_per_session"`
	AvgPromptsPerSession float64 `json:"avg_prompts_per_session"`
}

// CostRollup aggregates token spend over a window.
type CostRollup struct {
	AvgDailyTokens     float64 `json:"avg_daily_tokens"`
	AvgTokensPerPrompt float64 `json:"avg_tokens_per_prompt"`
	SessionCount       int     `json:"session_count"`
}

// DataSummary describes how much history the store holds.
type DataSummary struct {
	TotalEvents     int64 `json:"total_events"`
	TotalSessions   int64 `json:"total_sessions"`
	ActiveSessions  int64 `json:"active_sessions"`
	HistorySpanDays int   `json:"history_span_days"`
}
