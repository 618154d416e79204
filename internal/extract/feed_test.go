package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Metro Noticias</title>
  <item>
    <title>Cierre temporal de la estación San Antonio</title>
    <link>https://example.com/noticias/cierre-san-antonio</link>
    <description>&lt;p&gt;La estación estará cerrada por mantenimiento.&lt;/p&gt;</description>
    <pubDate>Mon, 31 Aug 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Sin enlace</title>
  </item>
  <item>
    <title></title>
    <link>https://example.com/sin-titulo</link>
  </item>
  <item>
    <title>Nueva ruta alimentadora</title>
    <link>https://example.com/noticias/nueva-ruta</link>
  </item>
</channel>
</rss>`

func TestFeedSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	defer server.Close()

	src := NewFeedSource("Metro", server.URL)
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// Entries without a link or a title are dropped.
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Source != "Metro" {
		t.Errorf("Expected source Metro, got %q", first.Source)
	}
	if first.Title != "Cierre temporal de la estación San Antonio" {
		t.Errorf("Unexpected title: %q", first.Title)
	}
	if first.URL != "https://example.com/noticias/cierre-san-antonio" {
		t.Errorf("Unexpected URL: %q", first.URL)
	}
	if first.Body != "La estación estará cerrada por mantenimiento." {
		t.Errorf("Expected HTML stripped from body, got %q", first.Body)
	}
	if first.PublishedAt != "2026-08-31T08:00:00Z" {
		t.Errorf("Expected RFC3339 published time, got %q", first.PublishedAt)
	}
}

func TestFeedSourceNameFallsBackToFeedTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSS))
	}))
	defer server.Close()

	src := NewFeedSource("", server.URL)
	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("Expected items")
	}
	if items[0].Source != "Metro Noticias" {
		t.Errorf("Expected feed title as source, got %q", items[0].Source)
	}
}

func TestFeedSourceFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	src := NewFeedSource("Metro", server.URL)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("Expected error for failing feed")
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"<p>Hola <b>mundo</b></p>", "Hola mundo"},
		{"Sin etiquetas", "Sin etiquetas"},
		{"a&nbsp;b &amp; c", "a b & c"},
		{"  espacios\n\n  dobles  ", "espacios dobles"},
	}

	for _, tt := range tests {
		if got := stripHTML(tt.input); got != tt.expected {
			t.Errorf("stripHTML(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
