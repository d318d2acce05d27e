package ports

import (
	"context"

	"vmharness/internal/domain/execution"
)

// CommandRunner executes a command synchronously in its working directory.
//
// A zero exit status yields the captured streams and a nil error. Any other
// result is reported as *execution.CommandError carrying the captured streams.
type CommandRunner interface {
	Run(ctx context.Context, cmd execution.Command) (execution.CommandResult, error)
	Close() error
}
