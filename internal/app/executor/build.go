package executor

import (
	"context"
	"errors"
	"fmt"

	"vmharness/internal/domain/execution"
	"vmharness/internal/ports"
)

// ErrBuildFailed marks the fatal severity: no test case runs after it.
var ErrBuildFailed = errors.New("build failed")

// BuildError reports which build step failed.
type BuildError struct {
	Component string
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Component, e.Err)
}

func (e *BuildError) Unwrap() []error {
	return []error{ErrBuildFailed, e.Err}
}

type builder struct {
	runner    ports.CommandRunner
	toolchain Toolchain
	reporter  *Reporter
}

// Build runs the build command for the compiler, then for the VM runner.
// There are no retries; the first failure stops the sequence.
func (b *builder) Build(ctx context.Context) error {
	for _, step := range b.toolchain.buildSteps() {
		b.reporter.BuildStarted(step.component)

		_, err := b.runner.Run(ctx, execution.Command{
			Path: b.toolchain.BuildCommand[0],
			Args: b.toolchain.BuildCommand[1:],
			Dir:  step.dir,
		})
		if err != nil {
			b.reporter.CommandFailed(err)
			return &BuildError{Component: step.component, Err: err}
		}
	}
	return nil
}
