package insights

import (
	"context"
	"testing"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

func TestCalculateSessionQualityUnknownSession(t *testing.T) {
	e := NewEngine(newFakeStore())
	got, err := e.CalculateSessionQuality(context.Background(), "missing")
	if err != nil {
		t.Fatalf("CalculateSessionQuality: %v", err)
	}
	if got != nil {
		t.Errorf("report = %+v, want nil for unknown session", got)
	}
}

func TestCalculateSessionQualitySteadySession(t *testing.T) {
	store := newFakeStore()
	store.metrics["s1"] = &models.SessionMetrics{
		SessionID:      "s1",
		DurationMs:     30 * 60_000,
		TotalTokens:    1000,
		EventCount:     10,
		ToolUsageCount: 5,
		PromptCount:    2,
	}

	base := int64(1_700_000_000_000)
	var events []models.Event
	for i := 0; i < 10; i++ {
		kind := models.EventPreToolUse
		switch i {
		case 0, 5:
			kind = models.EventUserPromptSubmit
		case 4, 9:
			kind = models.EventStop
		}
		events = append(events, models.Event{SessionID: "s1", EventType: kind, Timestamp: base + int64(i)*10_000})
	}
	store.events["s1"] = events

	e := NewEngine(store)
	got, err := e.CalculateSessionQuality(context.Background(), "s1")
	if err != nil {
		t.Fatalf("CalculateSessionQuality: %v", err)
	}
	if got == nil {
		t.Fatal("expected a quality report")
	}

	// Identical 10s gaps mean zero variance.
	if got.Factors.Consistency != 100 {
		t.Errorf("Consistency = %v, want 100", got.Factors.Consistency)
	}
	// No gap exceeds five minutes.
	if got.Factors.FocusTime != 100 {
		t.Errorf("FocusTime = %v, want 100", got.Factors.FocusTime)
	}
	// Two stops for two prompts.
	if got.Factors.CompletionRate != 100 {
		t.Errorf("CompletionRate = %v, want 100", got.Factors.CompletionRate)
	}
	if got.Factors.ErrorRate != 0 {
		t.Errorf("ErrorRate = %v, want 0", got.Factors.ErrorRate)
	}
	// Tool ratio 0.5 and 100 tokens/event are both ideal.
	if got.Factors.Efficiency != 100 {
		t.Errorf("Efficiency = %v, want 100", got.Factors.Efficiency)
	}
	if got.QualityScore != 100 {
		t.Errorf("QualityScore = %v, want 100", got.QualityScore)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != "Great session quality! Keep up the current working style." {
		t.Errorf("Suggestions = %v, want the all-clear message", got.Suggestions)
	}
}

func TestQualityFactorsSparseSession(t *testing.T) {
	store := newFakeStore()
	store.metrics["s1"] = &models.SessionMetrics{SessionID: "s1", EventCount: 1}
	store.events["s1"] = []models.Event{{SessionID: "s1", EventType: models.EventNotification, Timestamp: 1}}

	e := NewEngine(store)
	got, err := e.CalculateSessionQuality(context.Background(), "s1")
	if err != nil {
		t.Fatalf("CalculateSessionQuality: %v", err)
	}

	if got.Factors.Consistency != 50 {
		t.Errorf("Consistency = %v, want neutral 50", got.Factors.Consistency)
	}
	if got.Factors.FocusTime != 50 {
		t.Errorf("FocusTime = %v, want neutral 50", got.Factors.FocusTime)
	}
	if got.Factors.CompletionRate != 50 {
		t.Errorf("CompletionRate = %v, want neutral 50", got.Factors.CompletionRate)
	}
}

func TestFocusScorePenalizesLongPauses(t *testing.T) {
	base := int64(1_700_000_000_000)
	events := []models.Event{
		{Timestamp: base},
		{Timestamp: base + 10*60_000}, // 10 minute pause
		{Timestamp: base + 10*60_000 + 1000},
		{Timestamp: base + 25*60_000}, // another long pause
	}

	got := focusScore(events)
	if want := 100.0 - 2.0/4.0*200; got != want {
		t.Errorf("focusScore = %v, want %v", got, want)
	}
}

func TestCompletionScoreCaps(t *testing.T) {
	events := []models.Event{
		{EventType: models.EventUserPromptSubmit},
		{EventType: models.EventStop},
		{EventType: models.EventStop},
		{EventType: models.EventStop},
	}
	if got := completionScore(events); got != 100 {
		t.Errorf("completionScore = %v, want capped 100", got)
	}
}

func TestEfficiencyScoreSkewedToolUse(t *testing.T) {
	m := &models.SessionMetrics{EventCount: 100, ToolUsageCount: 100, TotalTokens: 10_000}
	// Balance 50, token efficiency 100.
	if got := efficiencyScore(m); got != 75 {
		t.Errorf("efficiencyScore = %v, want 75", got)
	}
}

func TestQualitySuggestionsPerFactor(t *testing.T) {
	f := models.QualityFactors{Consistency: 30, Efficiency: 30, FocusTime: 30, ErrorRate: 50, CompletionRate: 30}
	got := qualitySuggestions(f)
	if len(got) != 5 {
		t.Errorf("got %d suggestions, want 5", len(got))
	}
}
