package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"leangraph/internal/decl"
	"leangraph/internal/depgraph"
	"leangraph/internal/index"
	"leangraph/internal/introspect"
	"leangraph/internal/metrics"
	"leangraph/internal/record"
	"leangraph/internal/stats"
	"leangraph/internal/store"
)

// Worker processes a single crawl job end to end. Any failed phase
// fails the whole job; the snapshot publishes only after every phase
// has succeeded, so readers never observe a partial crawl.
type Worker struct {
	runner *introspect.Runner
	kv     store.KV
	holder *Holder
	rstats *stats.RunnerStats
	log    *slog.Logger

	ingestOpts []index.IngestOption
	buildOpts  []depgraph.BuildOption
	maxBuild   int
}

func NewWorker(runner *introspect.Runner, kv store.KV, holder *Holder, rstats *stats.RunnerStats,
	log *slog.Logger, ingestOpts []index.IngestOption, buildOpts []depgraph.BuildOption, maxBuild int) *Worker {
	if maxBuild <= 0 {
		maxBuild = 4
	}
	return &Worker{
		runner:     runner,
		kv:         kv,
		holder:     holder,
		rstats:     rstats,
		log:        log,
		ingestOpts: ingestOpts,
		buildOpts:  buildOpts,
		maxBuild:   maxBuild,
	}
}

// Process runs the full crawl pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "label", job.Label)

	// Phase 1: obtain the record stream.
	var records []*record.Record
	if len(job.Modules) > 0 {
		job.SetPhase(StatusRunning, "introspecting")
		recs, err := w.introspect(ctx, job, log)
		if err != nil {
			w.fail(job, log, "introspecting", err)
			return
		}
		records = recs
	} else {
		job.SetPhase(StatusRunning, "parsing")
		recs, err := record.ReadAll(bytes.NewReader(job.StreamData()))
		if err != nil {
			w.fail(job, log, "parsing", err)
			return
		}
		records = recs
	}
	job.SetRecordsParsed(len(records))
	metrics.AddRecordsParsed(len(records))
	log.Info("parsed record stream", "records", len(records))

	// Phase 2: build declarations, term sizes computed in parallel.
	job.SetPhase(StatusRunning, "building")
	decls, err := w.buildDeclarations(records)
	if err != nil {
		w.fail(job, log, "building", err)
		return
	}
	job.SetDeclarationsBuilt(len(decls))

	// Phase 3: seal the index.
	job.SetPhase(StatusRunning, "indexing")
	ix, err := index.FromDeclarations(job.Label, decls, w.ingestOpts...)
	if err != nil {
		w.fail(job, log, "indexing", err)
		return
	}
	metrics.AddDeclarationsIngested(ix.Len())

	// Phase 4: graph and statistics. Runs before the dump is written
	// so a corpus that fails validation never replaces the last good
	// one in the store.
	job.SetPhase(StatusRunning, "analyzing")
	started := time.Now()
	g, err := depgraph.Build(ix, w.buildOpts...)
	if err != nil {
		w.fail(job, log, "analyzing", err)
		return
	}
	metrics.ObserveGraphBuild(time.Since(started))
	job.SetGraphSize(g.Len(), g.EdgeCount())

	// Phase 5: persist the dump.
	job.SetPhase(StatusRunning, "persisting")
	if err := ix.Dump(w.kv); err != nil {
		w.fail(job, log, "persisting", err)
		return
	}

	// Phase 6: publish.
	w.holder.Publish(&Snapshot{
		Index: ix,
		Graph: g,
		Stats: stats.Corpus(ix, g),
		Built: time.Now(),
	})
	job.SetPhase(StatusSucceeded, "done")
	metrics.JobFinished("succeeded")
	log.Info("crawl complete",
		"declarations", ix.Len(), "nodes", g.Len(), "edges", g.EdgeCount())
}

// introspect runs the prover with retry on transient failures.
func (w *Worker) introspect(ctx context.Context, job *Job, log *slog.Logger) ([]*record.Record, error) {
	var records []*record.Record
	var lastErr error
	for attempt := range MaxRetries {
		started := time.Now()
		records, lastErr = w.runner.Run(ctx, job.Modules)
		elapsed := time.Since(started)
		w.rstats.Record(elapsed, lastErr == nil)
		metrics.ObserveIntrospection(elapsed)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable introspection error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return records, lastErr
}

// buildDeclarations converts records to declarations with bounded
// parallelism, preserving stream order. The first failure aborts the
// whole batch.
func (w *Worker) buildDeclarations(records []*record.Record) ([]*decl.Declaration, error) {
	decls := make([]*decl.Declaration, len(records))
	var eg errgroup.Group
	eg.SetLimit(w.maxBuild)
	for i, rec := range records {
		eg.Go(func() error {
			d, err := decl.Build(rec)
			if err != nil {
				return err
			}
			decls[i] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return decls, nil
}

func (w *Worker) fail(job *Job, log *slog.Logger, phase string, err error) {
	log.Error("crawl failed", "phase", phase, "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetPhase(StatusFailed, phase)
	metrics.JobFinished("failed")
}
