package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"vmharness/internal/domain/execution"
	"vmharness/internal/ports"
)

// pipeDrainDelay bounds how long Wait keeps reading from a killed process's
// pipes when a grandchild still holds them open.
const pipeDrainDelay = 2 * time.Second

// Config describes how the local runner executes commands.
type Config struct {
	// Timeout caps every command. Zero means no limit.
	Timeout time.Duration
}

// Runner executes commands as local child processes.
type Runner struct {
	timeout time.Duration
}

var _ ports.CommandRunner = (*Runner)(nil)

// New constructs a Runner from cfg.
func New(cfg Config) *Runner {
	timeout := cfg.Timeout
	if timeout < 0 {
		timeout = 0
	}
	return &Runner{timeout: timeout}
}

// Run starts cmd, waits for it and returns its captured streams.
func (r *Runner) Run(ctx context.Context, cmd execution.Command) (execution.CommandResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	proc := exec.CommandContext(runCtx, cmd.Path, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.WaitDelay = pipeDrainDelay

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	start := time.Now()
	err := proc.Run()
	result := execution.CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	if r.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.ExitCode = -1
		return result, &execution.CommandError{Command: cmd, Result: result, Timeout: true, Err: runCtx.Err()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &execution.CommandError{Command: cmd, Result: result, Err: ctx.Err()}
	}

	result.ExitCode = -1
	return result, &execution.CommandError{Command: cmd, Result: result, Err: fmt.Errorf("start process: %w", err)}
}

// Close is a no-op; local processes hold nothing between runs.
func (r *Runner) Close() error {
	return nil
}
