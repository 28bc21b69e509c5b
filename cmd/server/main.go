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

	"leangraph/internal/api"
	"leangraph/internal/config"
	"leangraph/internal/metrics"
	"leangraph/internal/pipeline"
	"leangraph/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := store.OpenPebble(cfg.DataDir, store.PebbleOptions{})
	if err != nil {
		log.Error("open store", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	prometheus.MustRegister(metrics.NewPebbleCollector(kv))

	orch := pipeline.NewOrchestrator(cfg, kv, log)

	// Serve the last persisted corpus until the first crawl finishes.
	snap, err := pipeline.LoadSnapshot(kv, pipeline.BuildOptions(cfg)...)
	if err != nil {
		log.Error("restore persisted index", "error", err)
		os.Exit(1)
	}
	if snap != nil {
		orch.Holder().Publish(snap)
		log.Info("restored persisted corpus",
			"label", snap.Index.Label(), "declarations", snap.Index.Len())
	}

	orch.Start(ctx)

	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Graceful shutdown.
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
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
