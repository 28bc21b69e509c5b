package introspect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"leangraph/internal/record"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-prover")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

const emitBody = `cat <<'EOF'
Name: nat
  Kind: inductive
  File: core/nat.lean
  Line: 3

Name: nat.succ
  Kind: definition
  Is constructor: true
EOF
`

func TestRunnerParsesEmittedRecords(t *testing.T) {
	r := NewRunner(writeScript(t, emitBody), time.Minute, 0)
	recs, err := r.Run(context.Background(), []string{"core.nat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Name() != "nat" || recs[1].Name() != "nat.succ" {
		t.Fatalf("unexpected names: %q, %q", recs[0].Name(), recs[1].Name())
	}
}

func TestRunnerPassesMemoryFlag(t *testing.T) {
	body := `[ "$1" = "--memory=2048" ] || { echo "missing memory flag" >&2; exit 3; }
` + emitBody
	r := NewRunner(writeScript(t, body), time.Minute, 2048)
	if _, err := r.Run(context.Background(), []string{"core.nat"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunnerTimeoutIsRetryable(t *testing.T) {
	r := NewRunner(writeScript(t, "sleep 5\n"), 50*time.Millisecond, 0)
	_, err := r.Run(context.Background(), []string{"core.nat"})
	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if !strings.Contains(re.Message, "timed out") {
		t.Fatalf("unexpected message: %q", re.Message)
	}
}

func TestRunnerResourceExhaustionIsRetryable(t *testing.T) {
	body := `echo "excessive memory consumption detected at 'expression traversal'" >&2
exit 1
`
	r := NewRunner(writeScript(t, body), time.Minute, 0)
	_, err := r.Run(context.Background(), []string{"core.nat"})
	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if re.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", re.ExitCode)
	}
}

func TestRunnerElaborationFailureIsPermanent(t *testing.T) {
	body := `echo "unknown identifier 'foo'" >&2
exit 1
`
	r := NewRunner(writeScript(t, body), time.Minute, 0)
	_, err := r.Run(context.Background(), []string{"core.nat"})
	if err == nil {
		t.Fatal("expected error")
	}
	var re *RetryableError
	if errors.As(err, &re) {
		t.Fatalf("expected permanent error, got retryable: %v", err)
	}
	if !strings.Contains(err.Error(), "status 1") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunnerSurfacesParserError(t *testing.T) {
	r := NewRunner(writeScript(t, "printf 'Name: broken\\n'\n"), time.Minute, 0)
	_, err := r.Run(context.Background(), []string{"core.nat"})
	var mErr *record.MalformedRecordError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}

func TestRunnerRejectsEmptyModuleList(t *testing.T) {
	r := NewRunner(writeScript(t, emitBody), time.Minute, 0)
	if _, err := r.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty module list")
	}
}

func TestBuildSource(t *testing.T) {
	got := BuildSource("data.nat.basic", "data.nat.prime")
	want := "import leangraph.emitter\n" +
		"import data.nat.basic\n" +
		"import data.nat.prime\n" +
		"\n" +
		"run_cmd leangraph.emit_env_records\n"
	if got != want {
		t.Fatalf("unexpected source:\n%s", got)
	}
}
