package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dfgiraldo/movalert/internal/news"
)

// SQLite is the local embedded Store backend.
type SQLite struct {
	conn *sql.DB
	path string
}

var _ Store = (*SQLite)(nil)

// OpenSQLite creates or opens the database at the given path and brings the
// schema up to date.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &SQLite{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// IsDuplicate checks for an existing row with the URL's hash.
func (s *SQLite) IsDuplicate(url string) (bool, error) {
	var id int64
	err := s.conn.QueryRow("SELECT id FROM news_item WHERE hash_url = ?", HashURL(url)).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrap("is duplicate", err)
	}
	return true, nil
}

// InsertNews inserts an item. The UNIQUE constraint on hash_url is the
// authoritative duplicate guard: a conflicting insert affects zero rows and
// returns 0 without error.
func (s *SQLite) InsertNews(item news.Item) (int64, error) {
	severity, tags, area, entities, summary, reasoning, relevance := enrichmentColumns(item)

	result, err := s.conn.Exec(
		`INSERT INTO news_item (
			source, url, hash_url, title, body, published_at,
			severity, tags, area, entities, summary, relevance_score, reasoning
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash_url) DO NOTHING`,
		item.Source, item.URL, HashURL(item.URL), item.Title, item.Body, item.PublishedAt,
		severity, tags, area, entities, summary, relevance, reasoning,
	)
	if err != nil {
		return 0, wrap("insert news", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, wrap("insert news", err)
	}
	if affected == 0 {
		return 0, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, wrap("insert news", err)
	}
	return id, nil
}

// MarkAlerted sets the alerted flag on a stored item.
func (s *SQLite) MarkAlerted(id int64) error {
	_, err := s.conn.Exec("UPDATE news_item SET alerted = 1 WHERE id = ?", id)
	return wrap("mark alerted", err)
}

// LogExecution appends one execution log row.
func (s *SQLite) LogExecution(stats news.RunStats) error {
	errs := stats.Errors
	if errs == nil {
		errs = []string{}
	}
	errsJSON, _ := json.Marshal(errs)

	_, err := s.conn.Exec(
		`INSERT INTO execution_log (
			execution_time, extracted, deduplicated, scored, kept, discarded,
			errors, duration_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		stats.Extracted, stats.Deduplicated, stats.Scored, stats.Kept, stats.Discarded,
		string(errsJSON), stats.DurationSeconds,
	)
	return wrap("log execution", err)
}

// GetStats aggregates counts over the whole store.
func (s *SQLite) GetStats() (*Stats, error) {
	stats := &Stats{
		BySeverity: make(map[string]int),
		BySource:   make(map[string]int),
	}

	if err := s.conn.QueryRow("SELECT COUNT(*) FROM news_item").Scan(&stats.TotalNews); err != nil {
		return nil, wrap("stats total", err)
	}

	rows, err := s.conn.Query(
		"SELECT COALESCE(severity, 'unknown'), COUNT(*) FROM news_item GROUP BY severity")
	if err != nil {
		return nil, wrap("stats by severity", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sev string
		var count int
		if err := rows.Scan(&sev, &count); err != nil {
			return nil, wrap("stats by severity", err)
		}
		stats.BySeverity[sev] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("stats by severity", err)
	}

	srcRows, err := s.conn.Query("SELECT source, COUNT(*) FROM news_item GROUP BY source")
	if err != nil {
		return nil, wrap("stats by source", err)
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var src string
		var count int
		if err := srcRows.Scan(&src, &count); err != nil {
			return nil, wrap("stats by source", err)
		}
		stats.BySource[src] = count
	}
	if err := srcRows.Err(); err != nil {
		return nil, wrap("stats by source", err)
	}

	if err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM (SELECT id FROM execution_log ORDER BY created_at DESC LIMIT 5)",
	).Scan(&stats.RecentExecutions); err != nil {
		return nil, wrap("stats executions", err)
	}

	return stats, nil
}

// RecentNews returns the newest items by publication time.
func (s *SQLite) RecentNews(limit int) ([]news.Item, error) {
	return s.queryNews(
		"SELECT "+newsColumns+" FROM news_item ORDER BY published_at DESC LIMIT ?",
		clampLimit(limit))
}

// HighSeverityNews returns high and critical items.
func (s *SQLite) HighSeverityNews(limit int) ([]news.Item, error) {
	return s.queryNews(
		"SELECT "+newsColumns+` FROM news_item
		WHERE severity IN ('high', 'critical')
		ORDER BY published_at DESC LIMIT ?`,
		clampLimit(limit))
}

// NewsBySource returns items from one source.
func (s *SQLite) NewsBySource(source string, limit int) ([]news.Item, error) {
	return s.queryNews(
		"SELECT "+newsColumns+" FROM news_item WHERE source = ? ORDER BY published_at DESC LIMIT ?",
		source, clampLimit(limit))
}

// NewsBySeverity returns items with one severity level.
func (s *SQLite) NewsBySeverity(sev news.Severity, limit int) ([]news.Item, error) {
	return s.queryNews(
		"SELECT "+newsColumns+" FROM news_item WHERE severity = ? ORDER BY published_at DESC LIMIT ?",
		string(sev), clampLimit(limit))
}

// SearchNews matches the query against title, body, and summary.
func (s *SQLite) SearchNews(query string, limit int) ([]news.Item, error) {
	like := "%" + query + "%"
	return s.queryNews(
		"SELECT "+newsColumns+` FROM news_item
		WHERE title LIKE ? OR body LIKE ? OR summary LIKE ?
		ORDER BY published_at DESC LIMIT ?`,
		like, like, like, clampLimit(limit))
}

// UnalertedSevere returns high/critical items never successfully alerted.
func (s *SQLite) UnalertedSevere(limit int) ([]news.Item, error) {
	return s.queryNews(
		"SELECT "+newsColumns+` FROM news_item
		WHERE severity IN ('high', 'critical') AND alerted = 0
		ORDER BY published_at DESC LIMIT ?`,
		clampLimit(limit))
}

// RecentExecutions returns the newest execution log rows.
func (s *SQLite) RecentExecutions(limit int) ([]news.ExecutionRecord, error) {
	rows, err := s.conn.Query(
		`SELECT id, execution_time, extracted, deduplicated, scored, kept, discarded,
			errors, duration_seconds, created_at
		FROM execution_log ORDER BY created_at DESC, id DESC LIMIT ?`,
		clampLimit(limit))
	if err != nil {
		return nil, wrap("recent executions", err)
	}
	defer rows.Close()
	records, err := scanExecutionRows(rows)
	return records, wrap("recent executions", err)
}

func (s *SQLite) queryNews(query string, args ...any) ([]news.Item, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, wrap("query news", err)
	}
	defer rows.Close()
	items, err := scanNewsRows(rows)
	return items, wrap("query news", err)
}
