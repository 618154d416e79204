package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.City != "Medellín" {
		t.Errorf("expected city 'Medellín', got %q", cfg.City)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if len(cfg.Sources.Pages) == 0 {
		t.Error("expected pages to be populated")
	}
	if cfg.Scoring.Provider != "mock" {
		t.Errorf("expected provider 'mock', got %q", cfg.Scoring.Provider)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("expected backend 'sqlite', got %q", cfg.Storage.Backend)
	}
	if !cfg.Alerts.Console {
		t.Error("expected console alerts enabled by default")
	}
	if cfg.Scheduler.IntervalMinutes != 5 {
		t.Errorf("expected interval 5, got %d", cfg.Scheduler.IntervalMinutes)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
scoring:
  provider: gemini
storage:
  backend: postgres
scheduler:
  interval_minutes: 15
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Scoring.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", cfg.Scoring.Provider)
	}
	if cfg.Storage.Backend != "postgres" {
		t.Errorf("expected backend 'postgres', got %q", cfg.Storage.Backend)
	}
	if cfg.Scheduler.IntervalMinutes != 15 {
		t.Errorf("expected interval 15, got %d", cfg.Scheduler.IntervalMinutes)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Scoring.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Scoring.OllamaURL)
	}
	if cfg.Storage.DSNEnv != "MOVALERT_POSTGRES_DSN" {
		t.Errorf("expected default dsn_env, got %q", cfg.Storage.DSNEnv)
	}
}

func TestParseRejectsNonPositiveInterval(t *testing.T) {
	cfg, err := parse([]byte("scheduler:\n  interval_minutes: -3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scheduler.IntervalMinutes != 5 {
		t.Errorf("expected fallback interval 5, got %d", cfg.Scheduler.IntervalMinutes)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Storage.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}

func TestAlertsFilePath(t *testing.T) {
	cfg := &Config{}
	cfg.Storage.DataDir = "/data"
	if got := cfg.AlertsFilePath(); got != filepath.Join("/data", "alerts.json") {
		t.Errorf("unexpected default alerts path: %q", got)
	}

	cfg.Alerts.File.Path = "/var/log/alerts.json"
	if cfg.AlertsFilePath() != "/var/log/alerts.json" {
		t.Errorf("expected explicit path, got %q", cfg.AlertsFilePath())
	}
}
