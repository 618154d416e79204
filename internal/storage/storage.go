package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dfgiraldo/movalert/internal/news"
)

// Store is the persistence contract shared by all backends. Every backend
// must behave identically: one stored row per distinct URL, silent rejection
// of duplicate inserts, and read queries that return empty slices rather
// than erroring on no results.
type Store interface {
	// IsDuplicate reports whether the URL's hash already exists. It is an
	// optimization only; InsertNews is the authoritative duplicate guard.
	IsDuplicate(url string) (bool, error)

	// InsertNews inserts an item and returns its assigned ID, or 0 if the
	// URL hash already exists (including a race lost after IsDuplicate).
	InsertNews(item news.Item) (int64, error)

	// MarkAlerted sets the alerted flag. Idempotent.
	MarkAlerted(id int64) error

	// LogExecution appends one execution log row. Zero-valued counters and
	// a nil error list are stored as 0 and [].
	LogExecution(stats news.RunStats) error

	GetStats() (*Stats, error)

	RecentNews(limit int) ([]news.Item, error)
	HighSeverityNews(limit int) ([]news.Item, error)
	NewsBySource(source string, limit int) ([]news.Item, error)
	NewsBySeverity(sev news.Severity, limit int) ([]news.Item, error)
	SearchNews(query string, limit int) ([]news.Item, error)

	// UnalertedSevere lists high/critical items whose alert dispatch never
	// succeeded. Visibility only; nothing re-dispatches them automatically.
	UnalertedSevere(limit int) ([]news.Item, error)

	RecentExecutions(limit int) ([]news.ExecutionRecord, error)

	Close() error
}

// Stats holds aggregate counts across the whole store.
type Stats struct {
	TotalNews        int
	BySeverity       map[string]int
	BySource         map[string]int
	RecentExecutions int
}

// Error wraps a backend failure so callers can tell storage trouble apart
// from pipeline logic errors.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// HashURL computes the dedup key: the SHA-256 hex digest of the URL exactly
// as given. No normalization; case and whitespace are significant.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// newsColumns is the shared SELECT column list; scanNewsRows depends on
// this exact order.
const newsColumns = `id, source, url, title, body, published_at,
	severity, tags, area, entities, summary, relevance_score, reasoning,
	alerted, created_at`

func scanNewsRows(rows *sql.Rows) ([]news.Item, error) {
	items := []news.Item{}
	for rows.Next() {
		var (
			it        news.Item
			severity  sql.NullString
			tags      sql.NullString
			area      sql.NullString
			entities  sql.NullString
			summary   sql.NullString
			relevance sql.NullFloat64
			reasoning sql.NullString
			alerted   boolColumn
			createdAt sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Source, &it.URL, &it.Title, &it.Body, &it.PublishedAt,
			&severity, &tags, &area, &entities, &summary, &relevance, &reasoning,
			&alerted, &createdAt); err != nil {
			return nil, err
		}
		it.Alerted = bool(alerted)
		it.CreatedAt = createdAt.String

		if severity.Valid && severity.String != "" {
			it.Enrichment = &news.Enrichment{
				Severity:       news.Severity(severity.String),
				Tags:           decodeStrings(tags.String),
				Area:           area.String,
				Entities:       decodeStrings(entities.String),
				Summary:        summary.String,
				RelevanceScore: relevance.Float64,
				Reasoning:      reasoning.String,
			}
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// boolColumn scans SQLite's 0/1 integers and Postgres's native booleans.
type boolColumn bool

func (b *boolColumn) Scan(v any) error {
	switch t := v.(type) {
	case nil:
		*b = false
	case bool:
		*b = boolColumn(t)
	case int64:
		*b = t != 0
	default:
		return fmt.Errorf("cannot scan %T into bool", v)
	}
	return nil
}

func scanExecutionRows(rows *sql.Rows) ([]news.ExecutionRecord, error) {
	records := []news.ExecutionRecord{}
	for rows.Next() {
		var (
			r         news.ExecutionRecord
			errsJSON  sql.NullString
			createdAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ExecutionTime, &r.Extracted, &r.Deduplicated,
			&r.Scored, &r.Kept, &r.Discarded, &errsJSON, &r.DurationSeconds, &createdAt); err != nil {
			return nil, err
		}
		r.Errors = decodeStrings(errsJSON.String)
		r.CreatedAt = createdAt.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// enrichmentColumns splits an item into the nullable enrichment column
// values used by both backends' INSERT statements.
func enrichmentColumns(item news.Item) (severity, tags, area, entities, summary, reasoning any, relevance any) {
	if item.Enrichment == nil {
		return nil, encodeStrings(nil), nil, encodeStrings(nil), nil, nil, nil
	}
	e := item.Enrichment
	return string(e.Severity), encodeStrings(e.Tags), e.Area, encodeStrings(e.Entities),
		e.Summary, e.Reasoning, e.RelevanceScore
}

func encodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func decodeStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
