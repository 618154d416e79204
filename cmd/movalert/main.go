package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dfgiraldo/movalert/internal/alert"
	"github.com/dfgiraldo/movalert/internal/config"
	"github.com/dfgiraldo/movalert/internal/extract"
	"github.com/dfgiraldo/movalert/internal/llm"
	"github.com/dfgiraldo/movalert/internal/news"
	"github.com/dfgiraldo/movalert/internal/pipeline"
	"github.com/dfgiraldo/movalert/internal/schedule"
	"github.com/dfgiraldo/movalert/internal/score"
	"github.com/dfgiraldo/movalert/internal/server"
	"github.com/dfgiraldo/movalert/internal/storage"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "movalert",
	Short:   "Mobility news alerts",
	Long:    "Movalert collects mobility news for a city, scores their impact, and alerts on severe disruptions.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("movalert", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/movalert/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure sources, the scoring provider, and alert channels.")
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pipeline cycle: extract -> dedup -> score -> save -> alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runner, err := buildRunner(store)
		if err != nil {
			return err
		}

		stats, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}

		printStats(stats)
		return nil
	},
}

// --- watch command ---

var watchInterval int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline continuously on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runner, err := buildRunner(store)
		if err != nil {
			return err
		}

		interval := cfg.Scheduler.IntervalMinutes
		if watchInterval > 0 {
			interval = watchInterval
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching sources every %d minute(s). Press Ctrl+C to stop.\n", interval)
		sched := schedule.New(time.Duration(interval)*time.Minute, func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			return err
		})
		sched.Start(ctx)
		return nil
	},
}

func init() {
	watchCmd.Flags().IntVarP(&watchInterval, "interval", "i", 0, "Override interval in minutes")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("City: %s\n\n", cfg.City)
		fmt.Println("News:")
		fmt.Printf("  Total saved: %d\n", stats.TotalNews)
		for _, severity := range []news.Severity{news.SeverityCritical, news.SeverityHigh, news.SeverityMedium, news.SeverityLow} {
			if count, ok := stats.BySeverity[string(severity)]; ok {
				fmt.Printf("  %s: %d\n", severity, count)
			}
		}

		if len(stats.BySource) > 0 {
			fmt.Println("\nBy source:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range stats.BySource {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}

		execs, err := store.RecentExecutions(5)
		if err != nil {
			return fmt.Errorf("getting executions: %w", err)
		}
		if len(execs) > 0 {
			fmt.Println("\nRecent runs:")
			for _, rec := range execs {
				fmt.Printf("  %s  extracted=%d kept=%d errors=%d (%.1fs)\n",
					rec.ExecutionTime, rec.Extracted, rec.Kept, len(rec.Errors), rec.DurationSeconds)
			}
		}
		return nil
	},
}

// --- news command ---

var (
	newsSeverity  string
	newsSource    string
	newsUnalerted bool
	newsLimit     int
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "List saved news",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var items []news.Item
		switch {
		case newsUnalerted:
			items, err = store.UnalertedSevere(newsLimit)
		case newsSeverity != "":
			severity := news.Severity(newsSeverity)
			if !severity.Valid() {
				return fmt.Errorf("unknown severity: %s", newsSeverity)
			}
			items, err = store.NewsBySeverity(severity, newsLimit)
		case newsSource != "":
			items, err = store.NewsBySource(newsSource, newsLimit)
		default:
			items, err = store.RecentNews(newsLimit)
		}
		if err != nil {
			return err
		}

		printItems(items)
		return nil
	},
}

func init() {
	newsCmd.Flags().StringVar(&newsSeverity, "severity", "", "Filter by severity (low, medium, high, critical)")
	newsCmd.Flags().StringVar(&newsSource, "source", "", "Filter by source name")
	newsCmd.Flags().BoolVar(&newsUnalerted, "unalerted", false, "Show severe items that were never alerted")
	newsCmd.Flags().IntVarP(&newsLimit, "limit", "n", 20, "Maximum items to show")
}

// --- search command ---

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search saved news by title and summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.SearchNews(args[0], searchLimit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Printf("No results for %q.\n", args[0])
			return nil
		}

		printItems(items)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum items to show")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}

		fmt.Printf("Starting dashboard at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(store, cfg.City, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on")
}

// --- wiring helpers ---

func openStore() (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		dsn := os.Getenv(cfg.Storage.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("postgres backend selected but %s is not set", cfg.Storage.DSNEnv)
		}
		return storage.OpenPostgres(dsn)
	default:
		dataDir := cfg.GetDataDir()
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return storage.OpenSQLite(filepath.Join(dataDir, "movalert.db"))
	}
}

func buildRunner(store storage.Store) (*pipeline.Runner, error) {
	extractor, err := buildExtractor()
	if err != nil {
		return nil, err
	}

	scorer, err := buildScorer()
	if err != nil {
		return nil, err
	}

	return pipeline.NewRunner(store, extractor, scorer, buildDispatcher()), nil
}

func buildExtractor() (extract.Extractor, error) {
	var sources []extract.Source
	for _, feed := range cfg.Sources.Feeds {
		sources = append(sources, extract.NewFeedSource(feed.Name, feed.URL))
	}
	for _, page := range cfg.Sources.Pages {
		sources = append(sources, extract.NewPageSource(page))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured; add feeds or pages to the config")
	}

	var fetcher *extract.BodyFetcher
	if cfg.Sources.FetchBodies {
		fetcher = extract.NewBodyFetcher(0)
	}
	return extract.NewMulti(sources, fetcher), nil
}

func buildScorer() (score.Scorer, error) {
	if cfg.Scoring.Provider == "" || cfg.Scoring.Provider == "mock" {
		log.Println("Using keyword scoring (no LLM provider configured)")
		return score.NewMockScorer(), nil
	}

	provider := llm.CreateProvider(
		cfg.Scoring.Provider,
		cfg.Scoring.Model,
		cfg.Scoring.OllamaURL,
		cfg.Scoring.OpenAIModel,
		cfg.Scoring.GeminiModel,
		cfg.Scoring.APIKeyEnv,
	)
	if provider == nil {
		return nil, fmt.Errorf("scoring provider %q is not available", cfg.Scoring.Provider)
	}
	return score.NewLLMScorer(provider, cfg.City, cfg.Scoring.MaxTokens), nil
}

func buildDispatcher() alert.Dispatcher {
	var channels []alert.Channel
	if cfg.Alerts.Console {
		channels = append(channels, alert.NewConsoleChannel())
	}
	if cfg.Alerts.File.Enabled {
		channels = append(channels, alert.NewFileChannel(cfg.AlertsFilePath()))
	}
	if cfg.Alerts.Email.Enabled {
		channels = append(channels, alert.NewEmailChannel(cfg.Alerts.Email))
	}
	if cfg.Alerts.Telegram.Enabled {
		channels = append(channels, alert.NewTelegramChannel(cfg.Alerts.Telegram))
	}
	if len(channels) == 0 {
		return nil
	}
	return alert.NewManager(channels...)
}

// --- output helpers ---

func printStats(stats *news.RunStats) {
	fmt.Println("\nRun complete:")
	fmt.Printf("  Extracted: %d\n", stats.Extracted)
	fmt.Printf("  Duplicates skipped: %d\n", stats.Deduplicated)
	fmt.Printf("  Scored: %d\n", stats.Scored)
	fmt.Printf("  Kept: %d (%.0f%%)\n", stats.Kept, stats.KeptPercent())
	fmt.Printf("  Discarded: %d\n", stats.Discarded)
	fmt.Printf("  Alerted: %d\n", stats.Alerted)
	if len(stats.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}

func printItems(items []news.Item) {
	if len(items) == 0 {
		fmt.Println("No news saved yet. Run 'movalert run' to collect some.")
		return
	}

	for _, item := range items {
		marker := " "
		if item.Alerted {
			marker = "!"
		}
		severity := "-"
		if item.Enrichment != nil {
			severity = string(item.Enrichment.Severity)
		}
		fmt.Printf("[%d] %s %-8s %s\n", item.ID, marker, severity, item.Title)
		fmt.Printf("      %s · %s\n", item.Source, item.URL)
		if item.Enrichment != nil && item.Enrichment.Summary != "" {
			summary := item.Enrichment.Summary
			if len(summary) > 100 {
				summary = summary[:100] + "..."
			}
			fmt.Printf("      %s\n", summary)
		}
	}
}
