package pipeline

import (
	"testing"
	"time"
)

func TestStreamFingerprint_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := StreamFingerprint(data)
	h2 := StreamFingerprint(data)
	if h1 != h2 {
		t.Errorf("expected identical fingerprints, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected fingerprint %q, got %q", want, h1)
	}
}

func TestStreamFingerprint_DifferentInputs(t *testing.T) {
	h1 := StreamFingerprint([]byte("aaa"))
	h2 := StreamFingerprint([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different fingerprints for different inputs")
	}
}

func TestStreamFingerprint_EmptyInput(t *testing.T) {
	h := StreamFingerprint([]byte{})
	// SHA-256 of empty input is well-known.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected fingerprint %q, got %q", want, h)
	}
}

func TestNewUploadJob(t *testing.T) {
	stream := []byte("name: nat\nkind: inductive\n\n")
	job := NewUploadJob("core", stream)

	if job.ID == "" {
		t.Error("expected a generated job ID")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.Fingerprint != StreamFingerprint(stream) {
		t.Error("expected fingerprint of the uploaded stream")
	}
	if got := job.StreamData(); string(got) != string(stream) {
		t.Errorf("expected stream data %q, got %q", stream, got)
	}
}

func TestNewCrawlJob(t *testing.T) {
	job := NewCrawlJob("mathlib", []string{"data.nat.basic", "data.list.basic"})

	if len(job.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(job.Modules))
	}
	if job.Fingerprint == "" {
		t.Error("expected a fingerprint derived from the module list")
	}
	other := NewCrawlJob("mathlib", []string{"data.int.basic"})
	if other.Fingerprint == job.Fingerprint {
		t.Error("expected different module lists to fingerprint differently")
	}
}

func TestJob_PhaseTransitions(t *testing.T) {
	job := NewCrawlJob("core", []string{"init.core"})

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusRunning, "introspecting"},
		{StatusRunning, "building"},
		{StatusRunning, "indexing"},
		{StatusRunning, "analyzing"},
		{StatusSucceeded, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetPhase(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetPhase(%q)", tr.phase)
		}
	}

	snap := job.Snapshot()
	for _, phase := range []string{"queued", "introspecting", "building", "indexing", "analyzing", "done"} {
		if _, ok := snap.PhaseTimes[phase]; !ok {
			t.Errorf("expected a timestamp for phase %q", phase)
		}
	}
}

func TestJob_SetPhaseFailed(t *testing.T) {
	job := NewUploadJob("core", []byte("name: nat\n\n"))
	job.SetPhase(StatusFailed, "parsing")
	if job.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, job.Status)
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("introspecting: prover timed out after 10s")
	job.AddError("parsing: malformed record")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "introspecting: prover timed out after 10s" {
		t.Errorf("unexpected first error %q", snap.Progress.Errors[0])
	}
}

func TestJob_ProgressCounters(t *testing.T) {
	job := &Job{ID: "counter-test", UpdatedAt: time.Now()}
	job.SetRecordsParsed(120)
	job.SetDeclarationsBuilt(118)
	job.SetGraphSize(118, 340)

	snap := job.Snapshot()
	if snap.Progress.RecordsParsed != 120 {
		t.Errorf("expected 120 records parsed, got %d", snap.Progress.RecordsParsed)
	}
	if snap.Progress.DeclarationsBuilt != 118 {
		t.Errorf("expected 118 declarations built, got %d", snap.Progress.DeclarationsBuilt)
	}
	if snap.Progress.GraphNodes != 118 || snap.Progress.GraphEdges != 340 {
		t.Errorf("expected graph size 118/340, got %d/%d",
			snap.Progress.GraphNodes, snap.Progress.GraphEdges)
	}
}

func TestJob_StreamData(t *testing.T) {
	job := &Job{ID: "data-test"}
	data := []byte("name: nat.succ\nkind: constructor\n\n")
	job.SetStreamData(data)
	got := job.StreamData()
	if string(got) != string(data) {
		t.Errorf("expected stream data %q, got %q", data, got)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
