package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"relcore/internal/config"
	"relcore/internal/db"
	"relcore/internal/metrics"
	"relcore/internal/output"
)

const defaultConfigPath = "relcore.toml"

// app carries the resolved settings shared by every command.
type app struct {
	configPath  string
	dbPath      string
	format      string
	logLevel    string
	logFormat   string
	metricsFile string
	timeout     time.Duration

	cfg       *config.Config
	logger    *slog.Logger
	formatter output.Formatter
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "relcore",
		Short: "Relational database toolkit for SQLite",
		Long: `relcore inspects, queries and migrates SQLite databases.

Settings are resolved from built-in defaults, then the config file
(relcore.toml by default), then RELCORE_* environment variables, then flags.`,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", defaultConfigPath, "Path to the TOML config file")
	flags.StringVar(&a.dbPath, "db", "", "Path to the SQLite database file")
	flags.StringVarP(&a.format, "format", "f", "human", "Output format: human, json, sql or summary")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write prometheus metrics in text format to this file on exit")
	flags.DurationVar(&a.timeout, "timeout", 5*time.Minute, "Timeout for the whole command")

	rootCmd.AddCommand(
		tablesCmd(a),
		describeCmd(a),
		queryCmd(a),
		execCmd(a),
		applyCmd(a),
		dropCmd(a),
		versionCmd(),
	)
	return rootCmd
}

// init resolves configuration. Flags only override values when set.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	formatter, err := output.NewFormatter(a.format)
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.formatter = cfg, logger, formatter
	return nil
}

func (a *app) open(ctx context.Context) (*db.Database, error) {
	opts, err := a.cfg.DBOptions(a.logger)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("no database: set --db, RELCORE_DB or [database].path")
	}
	d, err := db.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return d, nil
}

// withDB opens the database for the duration of fn.
func (a *app) withDB(cmd *cobra.Command, fn func(ctx context.Context, d *db.Database) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	d, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			a.logger.Error("failed to close database", slog.Any("error", cerr))
		}
	}()
	return fn(ctx, d)
}

func (a *app) writeMetrics() error {
	if a.metricsFile == "" {
		return nil
	}
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)
	if err := prometheus.WriteToTextfile(a.metricsFile, registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// machineReadable reports whether stdout carries formatted data only, so
// progress messages go to stderr.
func (a *app) machineReadable() bool {
	f := strings.TrimSpace(a.format)
	return f != "" && !strings.EqualFold(f, string(output.FormatHuman))
}

func (a *app) printInfo(cmd *cobra.Command, format string, args ...any) {
	w := cmd.OutOrStdout()
	if a.machineReadable() {
		w = cmd.ErrOrStderr()
	}
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
