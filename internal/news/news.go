package news

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Bounds applied to incoming items before anything downstream sees them.
const (
	MaxTitleLen = 500
	MaxBodyLen  = 2000
)

// Severity is the impact level assigned by the scorer.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the four known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Alertable reports whether s crosses the alert dispatch threshold.
// The gate is fixed: only high and critical trigger alerts.
func (s Severity) Alertable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Item is a single news item moving through the pipeline. It is created by
// an extractor, optionally enriched by the scorer, and persisted by storage.
type Item struct {
	ID          int64       `json:"id"`
	Source      string      `json:"source"`
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	Body        string      `json:"body,omitempty"`
	PublishedAt string      `json:"published_at"` // RFC 3339
	Enrichment  *Enrichment `json:"enrichment,omitempty"`
	Alerted     bool        `json:"alerted"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

// Enrichment holds the fields the scorer attaches to a kept item.
type Enrichment struct {
	Severity       Severity `json:"severity"`
	Tags           []string `json:"tags,omitempty"`
	Area           string   `json:"area,omitempty"`
	Entities       []string `json:"entities,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	RelevanceScore float64  `json:"relevance_score"`
	Reasoning      string   `json:"reasoning,omitempty"`
}

// NewItem builds an Item from raw extractor output, truncating title and
// body and defaulting a missing publication time to now.
func NewItem(source, url, title, body, publishedAt string) Item {
	if publishedAt == "" {
		publishedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return Item{
		Source:      source,
		URL:         url,
		Title:       truncate(strings.TrimSpace(title), MaxTitleLen),
		Body:        TruncateBody(body),
		PublishedAt: publishedAt,
	}
}

// TruncateBody trims and bounds body text to MaxBodyLen. Anything writing
// Item.Body after construction goes through this too.
func TruncateBody(body string) string {
	return truncate(strings.TrimSpace(body), MaxBodyLen)
}

// WithEnrichment returns a copy of the item carrying the scorer's output.
func (i Item) WithEnrichment(e Enrichment) Item {
	i.Enrichment = &e
	return i
}

// Severity returns the enriched severity, or empty if the item was never scored.
func (i Item) Severity() Severity {
	if i.Enrichment == nil {
		return ""
	}
	return i.Enrichment.Severity
}

// truncate bounds s to max characters, not bytes, so accented text keeps
// its full budget.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// RunStats accumulates counters for one pipeline run. Scored counts every
// scoring attempt, so Scored == Kept + Discarded + scoring errors.
type RunStats struct {
	Extracted       int
	Deduplicated    int
	Scored          int
	Kept            int
	Discarded       int
	Alerted         int
	Errors          []string
	DurationSeconds float64
}

// KeptPercent returns the share of scored items that were kept, for
// reporting only. Zero scored items yields 0 rather than dividing by zero.
func (s *RunStats) KeptPercent() float64 {
	if s.Scored == 0 {
		return 0
	}
	return float64(s.Kept) / float64(s.Scored) * 100
}

// Summary renders a human-readable run report.
func (s *RunStats) Summary() string {
	var b strings.Builder
	b.WriteString("Pipeline run summary:\n")
	fmt.Fprintf(&b, "  Extracted:    %d\n", s.Extracted)
	fmt.Fprintf(&b, "  Deduplicated: %d\n", s.Deduplicated)
	fmt.Fprintf(&b, "  Scored:       %d\n", s.Scored)
	fmt.Fprintf(&b, "  Kept:         %d (%.0f%%)\n", s.Kept, s.KeptPercent())
	fmt.Fprintf(&b, "  Discarded:    %d\n", s.Discarded)
	fmt.Fprintf(&b, "  Alerted:      %d\n", s.Alerted)
	fmt.Fprintf(&b, "  Duration:     %.2fs\n", s.DurationSeconds)
	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, "  Errors:       %d\n", len(s.Errors))
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "    - %s\n", e)
		}
	}
	return b.String()
}

// ExecutionRecord is one row of the append-only execution log.
type ExecutionRecord struct {
	ID              int64
	ExecutionTime   string
	Extracted       int
	Deduplicated    int
	Scored          int
	Kept            int
	Discarded       int
	Errors          []string
	DurationSeconds float64
	CreatedAt       string
}
