package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/watchwherelive/internal/config"
	"github.com/pfrederiksen/watchwherelive/internal/logger"
	"github.com/pfrederiksen/watchwherelive/internal/metrics"
	"github.com/pfrederiksen/watchwherelive/internal/storage"
)

const (
	ExitSuccess       = 0
	ExitError         = 1 // also any league fetch failure
	ExitStoreFailures = 3
)

var (
	flagConfig  string
	flagFormat  string
	flagVerbose bool
)

// exitError carries a non-zero exit code out of a command that already wrote its output
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchwherelive",
		Short: "Keep a normalized schedule of where NBA and Premier League games are on TV",
		Long: `watchwherelive scrapes league TV schedules into a store of canonical game records,
and serves the curation API used to map regional broadcasters per TV market.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./config/watchwherelive.yaml)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newScrapeCmd(),
		newServeCmd(),
		newQueueCmd(),
		newMapCmd(),
		newApplyRulesCmd(),
	)

	return cmd
}

// app holds what every subcommand needs
type app struct {
	cfg     *config.Config
	store   storage.Store
	metrics *metrics.Recorder
	log     *logger.Logger
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("Failed to close store", nil, err)
	}
}

// setup loads configuration, configures logging and opens the store
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if flagVerbose {
		level = logger.LevelDebug
	}
	// stdout is reserved for command output
	log := logger.New(level, os.Stderr)
	logger.SetDefault(log)

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}

	log.Debug("Store opened", logger.Fields{"backend": cfg.Store.Backend})
	return &app{cfg: cfg, store: store, metrics: metrics.New(), log: log}, nil
}

func outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	return format, nil
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		os.Exit(ExitSuccess)
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitError)
}
