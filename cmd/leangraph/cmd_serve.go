package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"leangraph/internal/api"
	"leangraph/internal/config"
	"leangraph/internal/metrics"
	"leangraph/internal/pipeline"
	"leangraph/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if rootCmd.PersistentFlags().Changed("store") {
		cfg.DataDir = storeDir
	}
	if criteriaFile != "" {
		cfg.CriteriaFile = criteriaFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	kv, err := store.OpenPebble(cfg.DataDir, store.PebbleOptions{})
	if err != nil {
		return err
	}
	prometheus.MustRegister(metrics.NewPebbleCollector(kv))

	orch := pipeline.NewOrchestrator(cfg, kv, log)

	snap, err := pipeline.LoadSnapshot(kv, pipeline.BuildOptions(cfg)...)
	if err != nil {
		return err
	}
	if snap != nil {
		orch.Holder().Publish(snap)
		log.Info("restored persisted corpus",
			"label", snap.Index.Label(), "declarations", snap.Index.Len())
	}

	orch.Start(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewServer(orch, log, cfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Drain HTTP first so no request can reach a closed queue.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if err := kv.Close(); err != nil {
			log.Error("close store", "error", err)
		}
	}()

	log.Info("starting leangraph", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
