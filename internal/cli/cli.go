package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/atxevents/atx-events/internal/calendar"
	"github.com/atxevents/atx-events/internal/config"
	"github.com/atxevents/atx-events/internal/event"
	"github.com/atxevents/atx-events/internal/ingest"
	"github.com/atxevents/atx-events/internal/logger"
	"github.com/atxevents/atx-events/internal/pipeline"
	"github.com/atxevents/atx-events/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitPartial = 2

	// SourceAll runs every configured source.
	SourceAll = "all"
)

var (
	flagSource  string
	flagConfig  string
	flagEnvFile string
	flagFormat  string
	flagICS     string
	flagDryRun  bool
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "atx-events",
		Short: "Ingest Austin event listings into a deduplicated store",
		Long: `A CLI tool that scrapes configured Austin event sources, normalizes
the listings into a canonical form, and ingests them into a deduplicated
event store.`,
		RunE: runIngest,
	}

	// Define flags
	cmd.Flags().StringVar(&flagSource, "source", "", "Source name or 'all' (required)")
	cmd.Flags().StringVar(&flagConfig, "config", "config.yaml", "Path to the configuration file")
	cmd.Flags().StringVar(&flagEnvFile, "env-file", ".env", "Env file with credentials, loaded when present")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagICS, "ics", "", "Also write this run's events to an iCalendar file")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Run against an in-memory store, nothing is persisted")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.MarkFlagRequired("source")

	return cmd
}

// runIngest is the main command logic
func runIngest(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	// Validate format
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	// Load credentials before the config layer resolves token env vars.
	if _, err := os.Stat(flagEnvFile); err == nil {
		if err := godotenv.Load(flagEnvFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		logger.Debug("env file loaded", logger.Fields{"path": flagEnvFile})
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	selector := strings.ToLower(strings.TrimSpace(flagSource))
	if err := validateSelector(cfg, selector); err != nil {
		return err
	}

	ctx := cmd.Context()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	p := pipeline.New(cfg, store)

	var results []pipeline.SourceResult
	var runErr error
	if selector == SourceAll {
		results, runErr = p.RunAll(ctx)
	} else {
		var res pipeline.SourceResult
		res, runErr = p.RunSource(ctx, selector)
		results = []pipeline.SourceResult{res}
	}
	if runErr != nil {
		return runErr
	}

	result := NewOutputResult(results, flagDryRun)
	if err := WriteOutput(os.Stdout, result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if flagICS != "" {
		if err := writeCalendar(flagICS, results); err != nil {
			return err
		}
	}

	if flagVerbose {
		logger.Debug("run metrics", logger.MetricsSnapshot())
	}

	if !result.Complete {
		os.Exit(ExitPartial)
	}
	os.Exit(ExitSuccess)
	return nil
}

// validateSelector rejects unknown source names before any store or
// network activity.
func validateSelector(cfg *config.Config, selector string) error {
	if selector == "" {
		return fmt.Errorf("--source is required")
	}
	if selector == SourceAll {
		return nil
	}
	if _, ok := cfg.Sources[selector]; !ok {
		return fmt.Errorf("unknown source %q (configured: %s, or 'all')",
			selector, strings.Join(cfg.SourceNames(), ", "))
	}
	return nil
}

// openStore picks the event store: in-memory for dry runs, Postgres
// otherwise. The returned func releases the store.
func openStore(ctx context.Context, cfg *config.Config) (ingest.Store, func(), error) {
	if flagDryRun {
		logger.Debug("dry run, using in-memory store", nil)
		return storage.NewMemory(), func() {}, nil
	}

	dsn := os.Getenv(cfg.DatabaseURLEnv)
	if dsn == "" {
		return nil, nil, fmt.Errorf("missing database DSN: environment variable %s is not set", cfg.DatabaseURLEnv)
	}
	pg, err := storage.NewPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// writeCalendar exports every event gathered this run as one .ics file.
func writeCalendar(path string, results []pipeline.SourceResult) error {
	var events []event.Event
	for _, res := range results {
		events = append(events, res.Events...)
	}

	ics := calendar.GenerateBulkICS(events, "Austin Events")
	if ics == "" {
		logger.Debug("no events to export, skipping calendar file", logger.Fields{"path": path})
		return nil
	}
	if err := os.WriteFile(path, []byte(ics), 0600); err != nil {
		return fmt.Errorf("writing calendar file: %w", err)
	}
	logger.Info("calendar file written", logger.Fields{"path": path, "events": len(events)})
	return nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
