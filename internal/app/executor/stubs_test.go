package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"vmharness/internal/domain/execution"
)

type stubRunner struct {
	mu      sync.Mutex
	runFn   func(ctx context.Context, cmd execution.Command) (execution.CommandResult, error)
	calls   []execution.Command
	closeFn func() error
}

func (s *stubRunner) Run(ctx context.Context, cmd execution.Command) (execution.CommandResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cmd)
	s.mu.Unlock()

	if s.runFn != nil {
		return s.runFn(ctx, cmd)
	}
	return execution.CommandResult{}, nil
}

func (s *stubRunner) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

func (s *stubRunner) commands() []execution.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]execution.Command(nil), s.calls...)
}

type sequenceCaseSource struct {
	mu    sync.Mutex
	cases []execution.TestCase
	index int
	calls int
}

func (s *sequenceCaseSource) NextCase(ctx context.Context) (execution.TestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := ctx.Err(); err != nil {
		return execution.TestCase{}, err
	}
	if s.index >= len(s.cases) {
		return execution.TestCase{}, io.EOF
	}
	tc := s.cases[s.index]
	s.index++
	return tc, nil
}

type errorCaseSource struct {
	err error
}

func (s errorCaseSource) NextCase(ctx context.Context) (execution.TestCase, error) {
	return execution.TestCase{}, s.err
}

type recordingPublisher struct {
	outcomes  []execution.Outcome
	summaries []execution.Summary
	err       error
	closed    bool
}

func (p *recordingPublisher) PublishOutcome(ctx context.Context, outcome execution.Outcome) error {
	p.outcomes = append(p.outcomes, outcome)
	return p.err
}

func (p *recordingPublisher) PublishSummary(ctx context.Context, summary execution.Summary) error {
	p.summaries = append(p.summaries, summary)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

// testToolchain lays the toolchain out under a fresh temp dir with the
// language directory created so the source file can be written.
func testToolchain(t *testing.T) Toolchain {
	t.Helper()
	toolchain, err := NewToolchain(t.TempDir())
	if err != nil {
		t.Fatalf("NewToolchain: %v", err)
	}
	mustMkdir(t, toolchain.LanguageDir)
	mustMkdir(t, toolchain.VMTestDir)
	return toolchain
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func failingCommand(cmd execution.Command, exitCode int, stdout, stderr string) error {
	return &execution.CommandError{
		Command: cmd,
		Result:  execution.CommandResult{Stdout: stdout, Stderr: stderr, ExitCode: exitCode},
	}
}

func isVMRunner(toolchain Toolchain, cmd execution.Command) bool {
	return filepath.Clean(cmd.Path) == filepath.Clean(toolchain.VMRunner)
}

var errUnexpectedCommand = errors.New("unexpected command")
