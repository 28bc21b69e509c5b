package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"leangraph/internal/config"
	"leangraph/internal/depgraph"
	"leangraph/internal/index"
	"leangraph/internal/introspect"
	"leangraph/internal/stats"
	"leangraph/internal/store"
)

// Orchestrator manages the crawl pipeline.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	kv     store.KV
	holder *Holder
	rstats *stats.RunnerStats
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline around an already-open store.
func NewOrchestrator(cfg config.Config, kv store.KV, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		kv:     kv,
		holder: new(Holder),
		rstats: stats.NewRunnerStats(cfg.RunnerStatsWindow),
		log:    log,
		cfg:    cfg,
	}
}

// Holder exposes the published snapshot for read handlers.
func (o *Orchestrator) Holder() *Holder { return o.holder }

// RunnerStats exposes the prover timing window.
func (o *Orchestrator) RunnerStats() *stats.RunnerStats { return o.rstats }

// Store exposes the backing key-value store.
func (o *Orchestrator) Store() store.KV { return o.kv }

// IngestOptions maps config onto index ingest options.
func IngestOptions(cfg config.Config) []index.IngestOption {
	var opts []index.IngestOption
	if cfg.AggregateConstructors {
		opts = append(opts, index.WithConstructorAggregation())
	}
	return opts
}

// BuildOptions maps config onto graph build options.
func BuildOptions(cfg config.Config) []depgraph.BuildOption {
	opts := []depgraph.BuildOption{
		depgraph.WithComponentCacheSize(cfg.ComponentCacheSize),
	}
	if cfg.SkipAuxiliary {
		opts = append(opts, depgraph.SkipAuxiliary())
	}
	if cfg.SkipStructural {
		opts = append(opts, depgraph.SkipStructural())
	}
	return opts
}

// Start launches worker goroutines and the job cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	runner := introspect.NewRunner(o.cfg.LeanBin, o.cfg.LeanTimeout, o.cfg.LeanMemoryMB)
	ingestOpts := IngestOptions(o.cfg)
	buildOpts := BuildOptions(o.cfg)

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(runner, o.kv, o.holder, o.rstats, o.log, ingestOpts, buildOpts, o.cfg.MaxConcurrentBuild)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()

	o.log.Info("pipeline started", "workers", o.cfg.WorkerCount)
}

// Stop shuts down workers and waits for in-flight jobs.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
	o.log.Info("pipeline stopped")
}

// Submit queues a job for processing. It fails fast when the queue is
// full rather than blocking the caller.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetPhase(StatusFailed, "queued")
		return fmt.Errorf("job queue is full (capacity %d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID, nil when unknown or expired.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns the number of jobs waiting for a worker.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
