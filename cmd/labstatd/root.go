package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danilshahmanov/Infotecs/internal/loader"
	"github.com/danilshahmanov/Infotecs/internal/logging"
	"github.com/danilshahmanov/Infotecs/internal/metrics"
	"github.com/danilshahmanov/Infotecs/internal/storage/export"
	"github.com/danilshahmanov/Infotecs/internal/storage/ingestion"
	"github.com/danilshahmanov/Infotecs/internal/storage/query"
	"github.com/danilshahmanov/Infotecs/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "labstatd",
	Short:         "Ingest experiment measurement files",
	Long:          `Streams semicolon-delimited measurement files into DuckDB, keeps one summary per file and serves both over HTTP.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (defaults apply when empty)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resultsCmd)
}

// app holds the components shared by every subcommand.
type app struct {
	cfg       *loader.Config
	store     *store.Store
	metrics   *metrics.Collector
	ingestion *ingestion.Service
	exporter  *export.Exporter
	query     *query.Service
}

// setup loads configuration, initializes logging and opens the store.
func setup() (*app, error) {
	cfg, err := loader.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if err := loader.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logging.Init(loader.LogLevel(&cfg.Logging), cfg.Logging.JSON)

	if err := loader.EnsureDirectories(cfg); err != nil {
		return nil, err
	}

	st, err := store.New(loader.ToStoreConfig(&cfg.Store))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	collector := metrics.NewCollector()

	ingester, err := ingestion.New(st, loader.ToIngestionOptions(cfg), collector)
	if err != nil {
		st.Close()
		return nil, err
	}

	parquetOpts, err := loader.ToParquetOptions(&cfg.Export)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		store:     st,
		metrics:   collector,
		ingestion: ingester,
		exporter:  export.New(st, cfg.Export.PageSize, parquetOpts, collector),
		query:     query.New(st, collector),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp runs fn with a ready app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := handleSignals(cmd.Context())
	defer cancel()

	return fn(ctx, a)
}

func output(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
