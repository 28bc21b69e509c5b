// Package introspect invokes the external prover binary and collects
// the record stream it emits for a library.
package introspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"leangraph/internal/record"
)

// Runner drives one prover invocation per crawl. It writes a wrapper
// source file importing the target modules, runs the binary under a
// deadline, and parses the records printed on standard output.
type Runner struct {
	binary   string
	timeout  time.Duration
	memoryMB int
}

func NewRunner(binary string, timeout time.Duration, memoryMB int) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Runner{
		binary:   binary,
		timeout:  timeout,
		memoryMB: memoryMB,
	}
}

// Run introspects the named modules and returns the emitted records.
// Timeouts and resource exhaustion come back as RetryableError;
// malformed emitter output surfaces the parser's error.
func (r *Runner) Run(ctx context.Context, modules []string) ([]*record.Record, error) {
	if len(modules) == 0 {
		return nil, errors.New("no modules to introspect")
	}

	dir, err := os.MkdirTemp("", "leangraph-introspect-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "emit.lean")
	if err := os.WriteFile(srcPath, []byte(BuildSource(modules...)), 0o644); err != nil {
		return nil, fmt.Errorf("write wrapper source: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var args []string
	if r.memoryMB > 0 {
		args = append(args, fmt.Sprintf("--memory=%d", r.memoryMB))
	}
	args = append(args, srcPath)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &RetryableError{
				ExitCode: -1,
				Message:  fmt.Sprintf("prover timed out after %s", r.timeout),
			}
		}
		return nil, r.classify(err, stderr.String())
	}

	records, err := record.ReadAll(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parse introspection output: %w", err)
	}
	return records, nil
}

func (r *Runner) classify(err error, stderr string) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("run %s: %w", r.binary, err)
	}
	msg := strings.TrimSpace(stderr)
	code := exitErr.ExitCode()
	if code == -1 || isResourceExhaustion(msg) {
		return &RetryableError{ExitCode: code, Message: msg}
	}
	return fmt.Errorf("%s exited with status %d: %s", r.binary, code, truncate(msg, 200))
}

// isResourceExhaustion matches the prover's out-of-budget diagnostics.
func isResourceExhaustion(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "excessive memory") ||
		strings.Contains(s, "deep recursion") ||
		strings.Contains(s, "deterministic timeout")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient introspection failure that can
// be retried.
type RetryableError struct {
	ExitCode int
	Message  string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable introspection failure (exit %d): %s", e.ExitCode, truncate(e.Message, 200))
}
