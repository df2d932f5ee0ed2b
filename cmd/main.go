package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blongworth/locness-dash/internal/api"
	"github.com/blongworth/locness-dash/internal/backend"
	"github.com/blongworth/locness-dash/internal/config"
	"github.com/blongworth/locness-dash/internal/dataset"
	"github.com/blongworth/locness-dash/internal/log"
	"github.com/blongworth/locness-dash/internal/refresh"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "locness-dash",
		Short: "Ingestion daemon for ship underway sensor data",
		Long: `locness-dash ingests underway oceanographic sensor records from a
SQLite file, a Parquet file, or a DynamoDB table, keeps an in-memory
dataset current by polling for new records, and serves time-windowed,
resampled views to the dashboard over HTTP.`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default is ./config.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion loop and the dashboard data API",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("verbose")
			listenAddr, _ := cmd.Flags().GetString("listen-addr")
			dataPath, _ := cmd.Flags().GetString("data-path")

			log.InitLogger(verbose)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataPath != "" {
				cfg.DataPath = dataPath
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return runServe(cfg)
		},
	}

	serveCmd.Flags().String("listen-addr", "", "Address for the data API (overrides config)")
	serveCmd.Flags().String("data-path", "", "Path to a SQLite or Parquet data file (overrides config)")

	return serveCmd
}

func runServe(cfg *config.Config) error {
	ctx := context.Background()

	adapter, err := backend.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build backend adapter: %w", err)
	}
	log.Logger.Infof("using %s backend", adapter.Name())

	store := dataset.NewStore(adapter)
	if err := store.InitialLoad(ctx); err != nil {
		// Not fatal: the dataset starts empty and the scheduler keeps
		// retrying until the backend comes back.
		log.Logger.Warnf("initial load failed, starting with empty dataset: %v", err)
	}

	scheduler := refresh.New(store, cfg.UpdateIntervalDuration())
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start refresh scheduler: %w", err)
	}

	server := api.NewServer(cfg.ListenAddr, store, cfg.Resampling())
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Logger.Infof("received %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			scheduler.Stop()
			return err
		}
	}

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop API server: %w", err)
	}

	return nil
}
