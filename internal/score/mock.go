package score

import (
	"context"
	"log"
	"strings"

	"github.com/dfgiraldo/movalert/internal/news"
)

// mobilityKeywords is the heuristic the mock scorer matches against titles
// and bodies.
var mobilityKeywords = []string{
	"metro", "bus", "tranvía", "cable", "tráfico", "vía", "cierre",
	"desvío", "accidente", "movilidad", "transporte", "pico y placa",
}

// MockScorer is a keyword-based scorer for running without LLM credentials.
type MockScorer struct{}

// NewMockScorer creates a mock scorer.
func NewMockScorer() *MockScorer {
	log.Println("Using mock scorer - keyword heuristic, no API calls")
	return &MockScorer{}
}

// Score keeps any item mentioning a mobility keyword and discards the rest.
func (s *MockScorer) Score(_ context.Context, item news.Item) (*news.Item, error) {
	title := strings.ToLower(item.Title)
	body := strings.ToLower(item.Body)

	relevant := false
	for _, kw := range mobilityKeywords {
		if strings.Contains(title, kw) || strings.Contains(body, kw) {
			relevant = true
			break
		}
	}
	if !relevant {
		return nil, nil
	}

	enriched := item.WithEnrichment(news.Enrichment{
		Severity:       news.SeverityMedium,
		Tags:           []string{"mock"},
		Area:           "Unknown",
		Entities:       nil,
		Summary:        item.Title,
		RelevanceScore: 0.75,
		Reasoning:      "Keyword match (mock mode)",
	})
	return &enriched, nil
}
