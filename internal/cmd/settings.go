package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/config"
	"github.com/harrison/dynrouting/internal/display"
	"github.com/harrison/dynrouting/internal/history"
	"github.com/harrison/dynrouting/internal/logger"
)

// addConfigFlags registers the flags every command shares with the config file.
func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: .dynrouting/config.yaml)")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-dir", "", "Directory for run logs (empty disables file logging)")
	flags.Bool("verbose", false, "Shorthand for --log-level debug")
	flags.Int("max-concurrency", 0, "Session files analyzed at once (0 = one per CPU)")
	flags.Int("engaged-threshold", 0, "Go trials inspected when detecting disengagement")
	flags.String("variant", "", "Other-modal go rule: auto, distractor, cross_block")
	flags.String("history-db", "", "Path to the training history database")
	flags.Bool("no-history", false, "Do not read or record the training history")
}

// loadConfig resolves defaults, the config file, the environment and the
// command line flags, in that order, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	} else {
		root, err := config.ProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to locate project root: %w", err)
		}
		cfg, err = config.Load(root)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.MergeWithFlags(flagOverrides(cmd))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.LogDir, err = config.ResolvePath(cfg.LogDir); err != nil {
		return nil, err
	}
	if cfg.History.DBPath, err = config.ResolvePath(cfg.History.DBPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagOverrides collects the flags set on the command line.
func flagOverrides(cmd *cobra.Command) config.FlagOverrides {
	var f config.FlagOverrides
	flags := cmd.Flags()

	if flags.Changed("max-concurrency") {
		v, _ := flags.GetInt("max-concurrency")
		f.MaxConcurrency = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		f.LogLevel = &v
	}
	if verbose, _ := flags.GetBool("verbose"); verbose && !flags.Changed("log-level") {
		v := "debug"
		f.LogLevel = &v
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		f.LogDir = &v
	}
	if flags.Changed("engaged-threshold") {
		v, _ := flags.GetInt("engaged-threshold")
		f.EngagedThreshold = &v
	}
	if flags.Changed("variant") {
		v, _ := flags.GetString("variant")
		f.Variant = &v
	}
	if flags.Changed("history-db") {
		v, _ := flags.GetString("history-db")
		f.HistoryDB = &v
	}
	if flags.Changed("no-history") {
		v, _ := flags.GetBool("no-history")
		f.NoHistory = &v
	}
	return f
}

// analysisOptions maps the configuration onto pipeline options.
func analysisOptions(cfg *config.Config) analysis.Options {
	workers := cfg.MaxConcurrency
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return analysis.Options{
		Variant:          cfg.AnalysisVariant(),
		EngagedThreshold: cfg.Analysis.EngagedThreshold,
		MaxConcurrency:   workers,
	}
}

// newLogger logs to stderr and, when a log directory is configured, to a run
// log file. The returned func closes the file logger.
func newLogger(cmd *cobra.Command, cfg *config.Config) (analysis.Logger, func(), error) {
	consoleLog := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if cfg.LogDir == "" {
		return consoleLog, func() {}, nil
	}

	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	return logger.NewMultiLogger(consoleLog, fileLog), func() { fileLog.Close() }, nil
}

// openHistory opens the training history, or returns nil when it is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}

func displayOptions(w io.Writer) display.Options {
	return display.Options{Color: logger.IsTerminal(w)}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
