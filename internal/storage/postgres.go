package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/dfgiraldo/movalert/internal/news"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS news_item (
    id BIGSERIAL PRIMARY KEY,
    source TEXT NOT NULL,
    url TEXT NOT NULL,
    hash_url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    published_at TEXT NOT NULL,
    severity TEXT CHECK(severity IN ('low', 'medium', 'high', 'critical')),
    tags TEXT,
    area TEXT,
    entities TEXT,
    summary TEXT,
    relevance_score DOUBLE PRECISION,
    reasoning TEXT,
    alerted BOOLEAN DEFAULT FALSE,
    created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS execution_log (
    id BIGSERIAL PRIMARY KEY,
    execution_time TEXT NOT NULL,
    extracted INTEGER DEFAULT 0,
    deduplicated INTEGER DEFAULT 0,
    scored INTEGER DEFAULT 0,
    kept INTEGER DEFAULT 0,
    discarded INTEGER DEFAULT 0,
    errors TEXT,
    duration_seconds DOUBLE PRECISION DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_news_hash_url ON news_item(hash_url);
CREATE INDEX IF NOT EXISTS idx_news_published_at ON news_item(published_at);
CREATE INDEX IF NOT EXISTS idx_news_severity ON news_item(severity);
CREATE INDEX IF NOT EXISTS idx_news_source ON news_item(source);
`

// Postgres is the remote relational Store backend. The contract is
// identical to SQLite; only the dialect differs.
type Postgres struct {
	conn *sql.DB
	sb   sq.StatementBuilderType
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects with the given DSN and ensures the schema exists.
func OpenPostgres(dsn string) (*Postgres, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := conn.Exec(postgresSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Postgres{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.conn.Close()
}

// IsDuplicate checks for an existing row with the URL's hash.
func (p *Postgres) IsDuplicate(url string) (bool, error) {
	var id int64
	err := p.conn.QueryRow("SELECT id FROM news_item WHERE hash_url = $1", HashURL(url)).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrap("is duplicate", err)
	}
	return true, nil
}

// InsertNews inserts an item, relying on the hash_url uniqueness constraint
// to reject duplicates. A conflicting insert returns no row and yields 0.
func (p *Postgres) InsertNews(item news.Item) (int64, error) {
	severity, tags, area, entities, summary, reasoning, relevance := enrichmentColumns(item)

	var id int64
	err := p.conn.QueryRow(
		`INSERT INTO news_item (
			source, url, hash_url, title, body, published_at,
			severity, tags, area, entities, summary, relevance_score, reasoning
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (hash_url) DO NOTHING
		RETURNING id`,
		item.Source, item.URL, HashURL(item.URL), item.Title, item.Body, item.PublishedAt,
		severity, tags, area, entities, summary, relevance, reasoning,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, wrap("insert news", err)
	}
	return id, nil
}

// MarkAlerted sets the alerted flag on a stored item.
func (p *Postgres) MarkAlerted(id int64) error {
	_, err := p.conn.Exec("UPDATE news_item SET alerted = TRUE WHERE id = $1", id)
	return wrap("mark alerted", err)
}

// LogExecution appends one execution log row.
func (p *Postgres) LogExecution(stats news.RunStats) error {
	errs := stats.Errors
	if errs == nil {
		errs = []string{}
	}
	errsJSON, _ := json.Marshal(errs)

	_, err := p.conn.Exec(
		`INSERT INTO execution_log (
			execution_time, extracted, deduplicated, scored, kept, discarded,
			errors, duration_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		time.Now().UTC().Format(time.RFC3339),
		stats.Extracted, stats.Deduplicated, stats.Scored, stats.Kept, stats.Discarded,
		string(errsJSON), stats.DurationSeconds,
	)
	return wrap("log execution", err)
}

// GetStats aggregates counts over the whole store.
func (p *Postgres) GetStats() (*Stats, error) {
	stats := &Stats{
		BySeverity: make(map[string]int),
		BySource:   make(map[string]int),
	}

	if err := p.conn.QueryRow("SELECT COUNT(*) FROM news_item").Scan(&stats.TotalNews); err != nil {
		return nil, wrap("stats total", err)
	}

	rows, err := p.conn.Query(
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

	srcRows, err := p.conn.Query("SELECT source, COUNT(*) FROM news_item GROUP BY source")
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

	if err := p.conn.QueryRow(
		"SELECT COUNT(*) FROM (SELECT id FROM execution_log ORDER BY created_at DESC LIMIT 5) recent",
	).Scan(&stats.RecentExecutions); err != nil {
		return nil, wrap("stats executions", err)
	}

	return stats, nil
}

func (p *Postgres) newsSelect() sq.SelectBuilder {
	return p.sb.Select(
		"id", "source", "url", "title", "body", "published_at",
		"severity", "tags", "area", "entities", "summary", "relevance_score", "reasoning",
		"alerted", "created_at",
	).From("news_item").OrderBy("published_at DESC")
}

// RecentNews returns the newest items by publication time.
func (p *Postgres) RecentNews(limit int) ([]news.Item, error) {
	return p.queryNews(p.newsSelect().Limit(uint64(clampLimit(limit))))
}

// HighSeverityNews returns high and critical items.
func (p *Postgres) HighSeverityNews(limit int) ([]news.Item, error) {
	return p.queryNews(p.newsSelect().
		Where(sq.Eq{"severity": []string{"high", "critical"}}).
		Limit(uint64(clampLimit(limit))))
}

// NewsBySource returns items from one source.
func (p *Postgres) NewsBySource(source string, limit int) ([]news.Item, error) {
	return p.queryNews(p.newsSelect().
		Where(sq.Eq{"source": source}).
		Limit(uint64(clampLimit(limit))))
}

// NewsBySeverity returns items with one severity level.
func (p *Postgres) NewsBySeverity(sev news.Severity, limit int) ([]news.Item, error) {
	return p.queryNews(p.newsSelect().
		Where(sq.Eq{"severity": string(sev)}).
		Limit(uint64(clampLimit(limit))))
}

// SearchNews matches the query against title, body, and summary.
func (p *Postgres) SearchNews(query string, limit int) ([]news.Item, error) {
	like := "%" + query + "%"
	return p.queryNews(p.newsSelect().
		Where(sq.Or{
			sq.ILike{"title": like},
			sq.ILike{"body": like},
			sq.ILike{"summary": like},
		}).
		Limit(uint64(clampLimit(limit))))
}

// UnalertedSevere returns high/critical items never successfully alerted.
func (p *Postgres) UnalertedSevere(limit int) ([]news.Item, error) {
	return p.queryNews(p.newsSelect().
		Where(sq.Eq{"severity": []string{"high", "critical"}}).
		Where(sq.Eq{"alerted": false}).
		Limit(uint64(clampLimit(limit))))
}

// RecentExecutions returns the newest execution log rows.
func (p *Postgres) RecentExecutions(limit int) ([]news.ExecutionRecord, error) {
	query, args, err := p.sb.Select(
		"id", "execution_time", "extracted", "deduplicated", "scored", "kept", "discarded",
		"errors", "duration_seconds", "created_at",
	).From("execution_log").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(clampLimit(limit))).
		ToSql()
	if err != nil {
		return nil, wrap("recent executions", err)
	}

	rows, err := p.conn.Query(query, args...)
	if err != nil {
		return nil, wrap("recent executions", err)
	}
	defer rows.Close()
	records, err := scanExecutionRows(rows)
	return records, wrap("recent executions", err)
}

func (p *Postgres) queryNews(builder sq.SelectBuilder) ([]news.Item, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, wrap("query news", err)
	}

	rows, err := p.conn.Query(query, args...)
	if err != nil {
		return nil, wrap("query news", err)
	}
	defer rows.Close()
	items, err := scanNewsRows(rows)
	return items, wrap("query news", err)
}
