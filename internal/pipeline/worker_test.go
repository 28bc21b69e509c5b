package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"leangraph/internal/index"
	"leangraph/internal/stats"
	"leangraph/internal/store"
)

const uploadStream = `Name: nat
  File: library/init/nat.lean
  Line: 12
  Kind: inductive
  Is inductive: true

Name: nat.add
  File: library/init/nat.lean
  Line: 54
  Kind: definition
  Type: "nat → nat → nat"
  Type uses others: ["nat"]

Name: nat.add_comm
  File: library/init/nat.lean
  Line: 61
  Kind: theorem
  Type uses others: ["nat", "nat.add"]
`

func testWorker(kv store.KV) (*Worker, *Holder) {
	holder := new(Holder)
	log := slog.New(slog.DiscardHandler)
	w := NewWorker(nil, kv, holder, stats.NewRunnerStats(time.Minute), log, nil, nil, 2)
	return w, holder
}

func TestWorker_UploadSucceedsAndPublishes(t *testing.T) {
	kv := store.NewMemory()
	w, holder := testWorker(kv)

	job := NewUploadJob("core", []byte(uploadStream))
	w.Process(context.Background(), job)

	if job.Status != StatusSucceeded {
		t.Fatalf("expected status %q, got %q (phase %q, errors %v)",
			StatusSucceeded, job.Status, job.Phase, job.Snapshot().Progress.Errors)
	}

	snap := job.Snapshot()
	if snap.Progress.RecordsParsed != 3 {
		t.Errorf("expected 3 records parsed, got %d", snap.Progress.RecordsParsed)
	}
	if snap.Progress.DeclarationsBuilt != 3 {
		t.Errorf("expected 3 declarations built, got %d", snap.Progress.DeclarationsBuilt)
	}
	if snap.Progress.GraphNodes != 3 || snap.Progress.GraphEdges != 3 {
		t.Errorf("expected graph size 3/3, got %d/%d",
			snap.Progress.GraphNodes, snap.Progress.GraphEdges)
	}

	published := holder.Load()
	if published == nil {
		t.Fatal("expected a published snapshot")
	}
	if published.Index.Len() != 3 {
		t.Errorf("expected 3 indexed declarations, got %d", published.Index.Len())
	}
	if published.Stats.Declarations != 3 {
		t.Errorf("expected corpus stats over 3 declarations, got %d", published.Stats.Declarations)
	}

	// The dump must be restorable from the same store.
	restored, err := index.Restore(kv)
	if err != nil {
		t.Fatalf("restore after crawl: %v", err)
	}
	if restored.Len() != 3 {
		t.Errorf("expected 3 restored declarations, got %d", restored.Len())
	}
}

func TestWorker_MalformedStreamFailsWithoutPublishing(t *testing.T) {
	kv := store.NewMemory()
	w, holder := testWorker(kv)

	job := NewUploadJob("broken", []byte("Name: a\n  Kind axiom\n"))
	w.Process(context.Background(), job)

	if job.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, job.Status)
	}
	if job.Phase != "parsing" {
		t.Errorf("expected failure in phase %q, got %q", "parsing", job.Phase)
	}
	if len(job.Snapshot().Progress.Errors) == 0 {
		t.Error("expected the parse error to be recorded on the job")
	}
	if holder.Load() != nil {
		t.Error("expected no snapshot to be published for a failed job")
	}
}

func TestWorker_InvalidDeclarationFailsBuilding(t *testing.T) {
	kv := store.NewMemory()
	w, holder := testWorker(kv)

	job := NewUploadJob("broken", []byte("Name: a\n  Kind: banana\n"))
	w.Process(context.Background(), job)

	if job.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, job.Status)
	}
	if job.Phase != "building" {
		t.Errorf("expected failure in phase %q, got %q", "building", job.Phase)
	}
	if holder.Load() != nil {
		t.Error("expected no snapshot to be published for a failed job")
	}
}

func TestWorker_CyclicCorpusFailsAnalyzing(t *testing.T) {
	kv := store.NewMemory()
	w, holder := testWorker(kv)

	cyclic := "Name: chicken\n  Kind: definition\n  Value uses others: [egg]\n\n" +
		"Name: egg\n  Kind: definition\n  Value uses others: [chicken]\n"
	job := NewUploadJob("cyclic", []byte(cyclic))
	w.Process(context.Background(), job)

	if job.Status != StatusFailed {
		t.Fatalf("expected status %q, got %q", StatusFailed, job.Status)
	}
	if job.Phase != "analyzing" {
		t.Errorf("expected failure in phase %q, got %q", "analyzing", job.Phase)
	}
	if holder.Load() != nil {
		t.Error("expected no snapshot to be published for a failed job")
	}
	if _, err := index.Restore(kv); !errors.Is(err, index.ErrNoDump) {
		t.Errorf("expected no dump after a failed crawl, got %v", err)
	}
}

func TestWorker_FailedCrawlKeepsPreviousDump(t *testing.T) {
	kv := store.NewMemory()
	w, holder := testWorker(kv)

	good := NewUploadJob("core", []byte(uploadStream))
	w.Process(context.Background(), good)
	if good.Status != StatusSucceeded {
		t.Fatalf("expected first crawl to succeed, got %q", good.Status)
	}

	cyclic := "Name: chicken\n  Kind: definition\n  Value uses others: [egg]\n\n" +
		"Name: egg\n  Kind: definition\n  Value uses others: [chicken]\n"
	bad := NewUploadJob("cyclic", []byte(cyclic))
	w.Process(context.Background(), bad)
	if bad.Status != StatusFailed {
		t.Fatalf("expected second crawl to fail, got %q", bad.Status)
	}

	// The served snapshot and the persisted dump both stay at the last
	// good corpus.
	if snap := holder.Load(); snap == nil || snap.Index.Label() != "core" {
		t.Fatal("expected the previous snapshot to keep serving")
	}
	restored, err := index.Restore(kv)
	if err != nil {
		t.Fatalf("restore after failed crawl: %v", err)
	}
	if restored.Label() != "core" || restored.Len() != 3 {
		t.Errorf("expected the previous dump to survive, got %q with %d declarations",
			restored.Label(), restored.Len())
	}
}
