package score

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/dfgiraldo/movalert/internal/llm"
	"github.com/dfgiraldo/movalert/internal/news"
)

const scorePrompt = `You are an analyst of urban mobility news for %s.

Decide whether this news item is relevant for a mobility alert system.

RELEVANT (keep=true) means: road closures, detours, public transport changes
(routes, schedules, fares, suspensions), traffic accidents affecting flow,
protests or blockades, severe weather affecting mobility, road works, new
transport infrastructure, or traffic regulation changes.

NOT RELEVANT (keep=false) means: administrative or political news with no
direct mobility impact, human interest stories, news about other cities,
advertising, or inaugurations with no operational change.

Severity levels:
- critical: total blockades, serious accidents, suspension of main services
- high: major detours, significant delays, major works
- medium: moderate route changes, events that increase traffic
- low: general information, minor improvements, scheduled maintenance

News item:
Source: %s
Title: %s
Published: %s
Body:
%s

Respond with ONLY this JSON:
{
    "keep": true or false,
    "severity": "low" | "medium" | "high" | "critical" (only if keep=true),
    "tags": ["tag1", "tag2"],
    "area": "affected area or transport line",
    "entities": ["institutions", "places", "stations"],
    "summary": "1-2 sentence summary of the mobility impact",
    "relevance_score": 0.0-1.0,
    "reasoning": "One sentence explaining your decision"
}`

// Scorer classifies one news item. A nil item with a nil error means the
// item was scored and discarded; a non-nil error means the attempt failed.
type Scorer interface {
	Score(ctx context.Context, item news.Item) (*news.Item, error)
}

// LLMScorer scores items through an LLM provider.
type LLMScorer struct {
	provider  llm.Provider
	city      string
	maxTokens int
}

// NewLLMScorer creates a scorer backed by the given provider.
func NewLLMScorer(provider llm.Provider, city string, maxTokens int) *LLMScorer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &LLMScorer{provider: provider, city: city, maxTokens: maxTokens}
}

// Score classifies one item. The provider call and the response parsing can
// both fail; either failure is the item's scoring error, never a discard.
func (s *LLMScorer) Score(ctx context.Context, item news.Item) (*news.Item, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	prompt := fmt.Sprintf(scorePrompt, s.city, item.Source, item.Title, item.PublishedAt, item.Body)

	responseText, err := s.provider.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("scoring %q: %w", item.Title, err)
	}

	parsed, err := llm.ExtractJSON(responseText)
	if err != nil {
		return nil, fmt.Errorf("scoring %q: %w", item.Title, err)
	}

	keep, ok := parsed["keep"].(bool)
	if !ok {
		return nil, fmt.Errorf("scoring %q: response missing keep field", item.Title)
	}
	if !keep {
		log.Printf("Discarded [%s]: %s", item.Source, item.Title)
		return nil, nil
	}

	severity := news.Severity(strings.ToLower(getString(parsed, "severity", "")))
	if !severity.Valid() {
		return nil, fmt.Errorf("scoring %q: invalid severity %q", item.Title, severity)
	}

	enriched := item.WithEnrichment(news.Enrichment{
		Severity:       severity,
		Tags:           getStrings(parsed, "tags"),
		Area:           getString(parsed, "area", ""),
		Entities:       getStrings(parsed, "entities"),
		Summary:        getString(parsed, "summary", ""),
		RelevanceScore: clampScore(getFloat(parsed, "relevance_score", 0)),
		Reasoning:      getString(parsed, "reasoning", ""),
	})

	log.Printf("Scored [%s] severity=%s score=%.2f: %s",
		item.Source, severity, enriched.Enrichment.RelevanceScore, item.Title)
	return &enriched, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func getString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func getStrings(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getFloat(m map[string]any, key string, fallback float64) float64 {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return fallback
}
