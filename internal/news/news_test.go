package news

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNewItemTruncatesTitleAndBody(t *testing.T) {
	longTitle := strings.Repeat("t", MaxTitleLen+100)
	longBody := strings.Repeat("b", MaxBodyLen+100)

	item := NewItem("Metro", "https://example.com/a", longTitle, longBody, "2026-08-30T10:00:00Z")

	if got := utf8.RuneCountInString(item.Title); got != MaxTitleLen {
		t.Errorf("expected title length %d, got %d", MaxTitleLen, got)
	}
	if got := utf8.RuneCountInString(item.Body); got != MaxBodyLen {
		t.Errorf("expected body length %d, got %d", MaxBodyLen, got)
	}
}

func TestNewItemTruncationCountsCharacters(t *testing.T) {
	// Accented text is multi-byte in UTF-8; the limits are characters, so
	// an exactly-at-limit accented title must survive untouched.
	title := strings.Repeat("á", MaxTitleLen)
	item := NewItem("Metro", "https://example.com/b", title, "cuerpo", "")

	if item.Title != title {
		t.Errorf("title at the character limit was truncated to %d runes",
			utf8.RuneCountInString(item.Title))
	}

	over := strings.Repeat("é", MaxBodyLen+50)
	item = NewItem("Metro", "https://example.com/b2", "t", over, "")
	if got := utf8.RuneCountInString(item.Body); got != MaxBodyLen {
		t.Errorf("expected body truncated to %d characters, got %d", MaxBodyLen, got)
	}
	if !utf8.ValidString(item.Body) {
		t.Error("truncated body is not valid UTF-8")
	}
}

func TestNewItemDefaultsPublishedAt(t *testing.T) {
	item := NewItem("Metro", "https://example.com/c", "title", "body", "")
	if item.PublishedAt == "" {
		t.Fatal("expected default published_at")
	}
	if _, err := time.Parse(time.RFC3339, item.PublishedAt); err != nil {
		t.Errorf("default published_at is not RFC 3339: %v", err)
	}
}

func TestSeverityValid(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []Severity{"", "severe", "HIGH"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestSeverityAlertable(t *testing.T) {
	cases := map[Severity]bool{
		SeverityLow:      false,
		SeverityMedium:   false,
		SeverityHigh:     true,
		SeverityCritical: true,
		"":               false,
	}
	for sev, want := range cases {
		if got := sev.Alertable(); got != want {
			t.Errorf("Alertable(%q) = %v, want %v", sev, got, want)
		}
	}
}

func TestWithEnrichmentDoesNotMutateOriginal(t *testing.T) {
	item := NewItem("Metro", "https://example.com/d", "title", "body", "")
	enriched := item.WithEnrichment(Enrichment{Severity: SeverityHigh, Area: "Centro"})

	if item.Enrichment != nil {
		t.Error("original item should not carry enrichment")
	}
	if enriched.Enrichment == nil || enriched.Enrichment.Severity != SeverityHigh {
		t.Error("enriched copy missing enrichment")
	}
	if enriched.Severity() != SeverityHigh {
		t.Errorf("expected severity high, got %q", enriched.Severity())
	}
	if item.Severity() != "" {
		t.Errorf("expected empty severity on unscored item, got %q", item.Severity())
	}
}

func TestKeptPercentZeroGuard(t *testing.T) {
	s := &RunStats{}
	if got := s.KeptPercent(); got != 0 {
		t.Errorf("expected 0 for zero scored, got %f", got)
	}

	s = &RunStats{Scored: 4, Kept: 3}
	if got := s.KeptPercent(); got != 75 {
		t.Errorf("expected 75, got %f", got)
	}
}

func TestSummaryIncludesErrors(t *testing.T) {
	s := &RunStats{Extracted: 3, Scored: 2, Kept: 1, Discarded: 1, Errors: []string{"scoring: boom"}}
	out := s.Summary()
	if !strings.Contains(out, "scoring: boom") {
		t.Errorf("expected error in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "Extracted:    3") {
		t.Errorf("expected extracted count in summary, got:\n%s", out)
	}
}
