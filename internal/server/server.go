// Package server is the HTTP dashboard over stored news and run history.
package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/dfgiraldo/movalert/internal/news"
	"github.com/dfgiraldo/movalert/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const pageLimit = 50

// Server serves the news dashboard.
type Server struct {
	store storage.Store
	city  string
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server.
func New(store storage.Store, city string) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"upper":    strings.ToUpper,
		"pct":      func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	}

	// Parse base template first, then clone it per page so each page gets
	// its own {{define "content"}}.
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pageNames := []string{"index.html", "executions.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{store: store, city: city, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/executions", s.handleExecutions)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	severity := news.Severity(r.URL.Query().Get("severity"))

	var items []news.Item
	var err error
	if severity != "" {
		if !severity.Valid() {
			http.Error(w, "Unknown severity", http.StatusBadRequest)
			return
		}
		items, err = s.store.NewsBySeverity(severity, pageLimit)
	} else {
		items, err = s.store.RecentNews(pageLimit)
	}
	if err != nil {
		log.Printf("Loading news: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	stats, err := s.store.GetStats()
	if err != nil {
		log.Printf("Loading stats: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"City":     s.city,
		"Items":    items,
		"Stats":    stats,
		"Severity": string(severity),
	})
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	execs, err := s.store.RecentExecutions(pageLimit)
	if err != nil {
		log.Printf("Loading executions: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "executions.html", map[string]any{
		"City":       s.city,
		"Executions": execs,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(store storage.Store, city string, port int) error {
	srv, err := New(store, city)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Dashboard listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
