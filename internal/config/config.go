package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	City      string    `yaml:"city"`
	Sources   Sources   `yaml:"sources"`
	Scoring   Scoring   `yaml:"scoring"`
	Storage   Storage   `yaml:"storage"`
	Alerts    Alerts    `yaml:"alerts"`
	Scheduler Scheduler `yaml:"scheduler"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Sources struct {
	Feeds       []Feed `yaml:"feeds"`
	Pages       []Page `yaml:"pages"`
	FetchBodies bool   `yaml:"fetch_bodies"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Page describes an HTML news listing scraped with CSS selectors. The
// selectors are configuration, not code; swapping a source means editing
// YAML, never the extractor.
type Page struct {
	URL             string `yaml:"url"`
	Name            string `yaml:"name"`
	ItemSelector    string `yaml:"item_selector"`
	TitleSelector   string `yaml:"title_selector"`
	LinkSelector    string `yaml:"link_selector"`
	SummarySelector string `yaml:"summary_selector"`
}

type Scoring struct {
	Provider    string `yaml:"provider"` // mock, ollama, openai, gemini
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	GeminiModel string `yaml:"gemini_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Storage struct {
	Backend string `yaml:"backend"` // sqlite, postgres
	DataDir string `yaml:"data_dir"`
	DSNEnv  string `yaml:"dsn_env"`
}

type Alerts struct {
	Console  bool           `yaml:"console"`
	File     FileAlerts     `yaml:"file"`
	Email    EmailAlerts    `yaml:"email"`
	Telegram TelegramAlerts `yaml:"telegram"`
}

type FileAlerts struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type EmailAlerts struct {
	Enabled     bool     `yaml:"enabled"`
	SMTPHost    string   `yaml:"smtp_host"`
	SMTPPort    int      `yaml:"smtp_port"`
	UserEnv     string   `yaml:"user_env"`
	PasswordEnv string   `yaml:"password_env"`
	Recipients  []string `yaml:"recipients"`
}

type TelegramAlerts struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env"`
	ChatID   string `yaml:"chat_id"`
}

type Scheduler struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for movalert.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "movalert")
}

// DataDir returns the XDG data directory for movalert.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "movalert")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/movalert/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'movalert init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		City: "Medellín",
		Scoring: Scoring{
			Provider:    "mock",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			GeminiModel: "gemini-2.0-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			MaxTokens:   1024,
		},
		Storage: Storage{
			Backend: "sqlite",
			DSNEnv:  "MOVALERT_POSTGRES_DSN",
		},
		Alerts: Alerts{
			Console: true,
			File:    FileAlerts{Enabled: true},
		},
		Scheduler: Scheduler{IntervalMinutes: 5},
		Server:    Server{Port: 8000},
		Logging:   Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Scheduler.IntervalMinutes <= 0 {
		cfg.Scheduler.IntervalMinutes = 5
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// AlertsFilePath returns the configured alerts log path, defaulting to
// alerts.json inside the data directory.
func (c *Config) AlertsFilePath() string {
	if c.Alerts.File.Path != "" {
		return c.Alerts.File.Path
	}
	return filepath.Join(c.GetDataDir(), "alerts.json")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
