package executor

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"vmharness/internal/domain/execution"
	"vmharness/internal/domain/registers"
	"vmharness/internal/ports"
)

type caseRunner struct {
	runner    ports.CommandRunner
	toolchain Toolchain
}

func newCaseRunner(runner ports.CommandRunner, toolchain Toolchain) *caseRunner {
	return &caseRunner{runner: runner, toolchain: toolchain}
}

// Run writes the source, compiles it, executes the bytecode and verifies the
// registers, stopping at the first failing stage.
func (r *caseRunner) Run(ctx context.Context, tc execution.TestCase) execution.Outcome {
	start := time.Now()
	outcome := r.run(ctx, tc)
	outcome.Case = tc
	outcome.Duration = time.Since(start)
	return outcome
}

func (r *caseRunner) run(ctx context.Context, tc execution.TestCase) execution.Outcome {
	if err := os.WriteFile(r.toolchain.SourceFile, []byte(tc.Source), 0o644); err != nil {
		return execution.Outcome{
			Stage:  execution.StageCompile,
			Reason: execution.ReasonWriteSource,
			Err:    err,
		}
	}

	if _, err := r.runner.Run(ctx, execution.Command{
		Path: r.toolchain.Compiler,
		Dir:  r.toolchain.LanguageDir,
	}); err != nil {
		return commandFailure(execution.StageCompile, err)
	}

	result, err := r.runner.Run(ctx, execution.Command{
		Path: r.toolchain.VMRunner,
		Args: []string{r.toolchain.BytecodeFile},
		Dir:  r.toolchain.VMTestDir,
	})
	if err != nil {
		return commandFailure(execution.StageExecute, err)
	}

	actual, err := registers.Parse(result.Stdout)
	if err != nil {
		return execution.Outcome{
			Stage:       execution.StageVerify,
			Reason:      execution.ReasonMalformedOutput,
			Diagnostics: result.Stdout,
			Err:         err,
		}
	}

	mismatches := registers.Verify(tc.ExpectedRegisters, actual)
	outcome := execution.Outcome{
		Stage:       execution.StageVerify,
		Success:     len(mismatches) == 0,
		Diagnostics: result.Stdout,
		Actual:      actual,
		Mismatches:  mismatches,
	}
	if !outcome.Success {
		outcome.Reason = execution.ReasonMismatch
	}
	return outcome
}

func commandFailure(stage execution.Stage, err error) execution.Outcome {
	outcome := execution.Outcome{
		Stage:  stage,
		Reason: execution.ReasonCommandFailed,
		Err:    err,
	}
	if errors.Is(err, execution.ErrTimeout) {
		outcome.Reason = execution.ReasonTimeout
	}

	var cmdErr *execution.CommandError
	if errors.As(err, &cmdErr) {
		outcome.Diagnostics = strings.TrimRight(cmdErr.Result.Stdout+cmdErr.Result.Stderr, "\n")
	}
	return outcome
}
