package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sadopc/grindstone/internal/config"
	"github.com/sadopc/grindstone/internal/output"
	"github.com/sadopc/grindstone/internal/stats"
	"github.com/sadopc/grindstone/internal/store"
	"github.com/sadopc/grindstone/internal/timer"
	"github.com/sadopc/grindstone/internal/tui"
)

// Package-level shared dependencies. ui is set in cobra.OnInitialize; the
// rest are built on first use so config commands run without a database.
var (
	ui   *output.UI
	deps *appDeps

	cfgFile string
	dbPath  string
	verbose bool
)

// appDeps is everything a command that touches intervals needs.
type appDeps struct {
	cfg    *config.Config
	logger *slog.Logger
	logs   io.Closer
	store  *store.Store
	engine *timer.Engine
	stats  *stats.Aggregator
}

func (d *appDeps) Close() error {
	err := d.store.Close()
	if d.logs != nil {
		err = errors.Join(err, d.logs.Close())
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:   "grindstone",
	Short: "Pomodoro timer with session history and statistics",
	Long: `grindstone runs work and break intervals in the pomodoro rhythm and
keeps a history of every interval, completed or abandoned, per category.

Run without a subcommand in a terminal to open the interactive timer.
When stdout is not a terminal, today's summary is printed instead.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeDeps()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", describe(err))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.config/grindstone/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides store.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output and debug logging")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
}

// rootRun opens the TUI on a terminal and prints today's summary otherwise.
func rootRun(cmd *cobra.Command) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return statsRun(cmd.Context(), stats.PeriodDay, 0, "")
	}

	d, err := getDeps()
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), d.store, d.engine, d.stats)
}

// loadConfig reads the config file and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	return cfg, nil
}

// getDeps returns the shared dependencies, building them on first call.
func getDeps() (*appDeps, error) {
	if deps != nil {
		return deps, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, logs, err := newLogger(cfg, verbose)
	if err != nil {
		return nil, err
	}

	var opts []store.Option
	opts = append(opts, store.WithLogger(logger))
	if cfg.Store.SeedCategories {
		opts = append(opts, store.WithDefaultCategories())
	}
	s, err := store.New(cfg.Store.Path, opts...)
	if err != nil {
		closeQuietly(logs)
		return nil, fmt.Errorf("open database %s: %w", cfg.Store.Path, err)
	}
	ui.VerboseLog("Database: %s", cfg.Store.Path)

	d, err := wire(cfg, s, logger)
	if err != nil {
		_ = s.Close()
		closeQuietly(logs)
		return nil, err
	}
	d.logs = logs
	deps = d
	return deps, nil
}

// wire builds the engine and aggregator on an open store. Timer settings
// saved from the TUI take precedence over the config file.
func wire(cfg *config.Config, s *store.Store, logger *slog.Logger) (*appDeps, error) {
	ctx := context.Background()

	settings, err := s.GetAllSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplySettings(settings); err != nil {
		logger.Warn("ignoring saved settings", "error", err)
		ui.Warning("Ignoring saved settings: %v", err)
	}

	engine, err := timer.New(cfg.TimerConfig(), s, timer.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	weekStart, err := cfg.WeekStart()
	if err != nil {
		return nil, err
	}
	agg := stats.New(s, stats.WithLocation(loc), stats.WithWeekStart(weekStart))

	return &appDeps{cfg: cfg, logger: logger, store: s, engine: engine, stats: agg}, nil
}

func closeDeps() {
	if deps == nil {
		return
	}
	if err := deps.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: closing database: %v\n", err)
	}
	deps = nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// describe adds a hint to errors the user can act on.
func describe(err error) error {
	if errors.Is(err, store.ErrStorageUnavailable) {
		return fmt.Errorf("%w (check the database path with --db or %s)", err, config.EnvVar(config.KeyStorePath))
	}
	return err
}
