package score

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dfgiraldo/movalert/internal/news"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response   string
	err        error
	lastPrompt string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func scoreResponse(keep bool, severity string, relevance float64) string {
	resp, _ := json.Marshal(map[string]any{
		"keep":            keep,
		"severity":        severity,
		"tags":            []string{"metro", "suspension"},
		"area":            "Línea A",
		"entities":        []string{"Metro de Medellín"},
		"summary":         "Servicio suspendido en la Línea A.",
		"relevance_score": relevance,
		"reasoning":       "Suspensión de servicio principal.",
	})
	return string(resp)
}

func sampleItem() news.Item {
	return news.NewItem("Metro", "https://example.com/n1",
		"Suspensión temporal en la Línea A", "El servicio se suspende por mantenimiento.",
		"2026-08-30T10:00:00Z")
}

func TestScoreKeepsRelevantItem(t *testing.T) {
	provider := &mockProvider{response: scoreResponse(true, "critical", 0.95)}
	scorer := NewLLMScorer(provider, "Medellín", 1024)

	result, err := scorer.Score(context.Background(), sampleItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected kept item")
	}
	e := result.Enrichment
	if e == nil {
		t.Fatal("expected enrichment")
	}
	if e.Severity != news.SeverityCritical {
		t.Errorf("expected critical, got %q", e.Severity)
	}
	if e.Area != "Línea A" {
		t.Errorf("unexpected area: %q", e.Area)
	}
	if len(e.Tags) != 2 {
		t.Errorf("unexpected tags: %v", e.Tags)
	}
	if e.RelevanceScore != 0.95 {
		t.Errorf("unexpected relevance: %f", e.RelevanceScore)
	}
}

func TestScoreDiscardsOnKeepFalse(t *testing.T) {
	provider := &mockProvider{response: scoreResponse(false, "", 0.1)}
	scorer := NewLLMScorer(provider, "Medellín", 1024)

	result, err := scorer.Score(context.Background(), sampleItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Error("expected nil for discarded item")
	}
}

func TestScoreProviderErrorIsError(t *testing.T) {
	provider := &mockProvider{err: errors.New("timeout")}
	scorer := NewLLMScorer(provider, "Medellín", 1024)

	result, err := scorer.Score(context.Background(), sampleItem())
	if err == nil {
		t.Fatal("expected error")
	}
	if result != nil {
		t.Error("expected nil item on error")
	}
}

func TestScoreUnparseableResponseIsError(t *testing.T) {
	provider := &mockProvider{response: "not JSON"}
	scorer := NewLLMScorer(provider, "Medellín", 1024)

	if _, err := scorer.Score(context.Background(), sampleItem()); err == nil {
		t.Error("expected error for unparseable response")
	}
}

func TestScoreInvalidSeverityIsError(t *testing.T) {
	provider := &mockProvider{response: scoreResponse(true, "urgent", 0.9)}
	scorer := NewLLMScorer(provider, "Medellín", 1024)

	if _, err := scorer.Score(context.Background(), sampleItem()); err == nil {
		t.Error("expected error for invalid severity")
	}
}

func TestScoreClampsRelevance(t *testing.T) {
	provider := &mockProvider{response: scoreResponse(true, "high", 1.7)}
	scorer := NewLLMScorer(provider, "Medellín", 1024)

	result, err := scorer.Score(context.Background(), sampleItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Enrichment.RelevanceScore != 1 {
		t.Errorf("expected clamped score 1, got %f", result.Enrichment.RelevanceScore)
	}
}

func TestScorePromptIncludesCityAndItem(t *testing.T) {
	provider := &mockProvider{response: scoreResponse(true, "low", 0.3)}
	scorer := NewLLMScorer(provider, "Medellín", 1024)

	scorer.Score(context.Background(), sampleItem())

	if !strings.Contains(provider.lastPrompt, "Medellín") {
		t.Error("expected city in prompt")
	}
	if !strings.Contains(provider.lastPrompt, "Suspensión temporal en la Línea A") {
		t.Error("expected item title in prompt")
	}
}

func TestMockScorerKeepsKeywordMatch(t *testing.T) {
	scorer := NewMockScorer()

	result, err := scorer.Score(context.Background(), sampleItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected mobility item to be kept")
	}
	if result.Enrichment.Severity != news.SeverityMedium {
		t.Errorf("expected medium severity, got %q", result.Enrichment.Severity)
	}
}

func TestMockScorerDiscardsUnrelated(t *testing.T) {
	scorer := NewMockScorer()
	item := news.NewItem("Blog", "https://example.com/n2",
		"Festival gastronómico este fin de semana", "Comida para todos.", "2026-08-30T10:00:00Z")

	result, err := scorer.Score(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Error("expected unrelated item to be discarded")
	}
}
