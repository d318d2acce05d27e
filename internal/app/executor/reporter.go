package executor

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"vmharness/internal/domain/execution"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// Reporter prints build progress, per-test verdicts and the final summary.
type Reporter struct {
	out   io.Writer
	color bool
}

// NewReporter writes to out, colouring verdicts when out is a terminal.
func NewReporter(out io.Writer) *Reporter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Reporter{out: out, color: color}
}

func (r *Reporter) BuildStarted(component string) {
	fmt.Fprintf(r.out, "Building %s...\n", component)
}

func (r *Reporter) BuildAborted() {
	fmt.Fprintln(r.out, "Failed to build tools. Exiting.")
}

func (r *Reporter) CaseStarted(tc execution.TestCase) {
	fmt.Fprintf(r.out, "Running test: %s\n", tc.Name)
}

// CommandFailed dumps the failing command with everything it printed.
func (r *Reporter) CommandFailed(err error) {
	var cmdErr *execution.CommandError
	if !errors.As(err, &cmdErr) {
		fmt.Fprintf(r.out, "Error running command: %v\n", err)
		return
	}

	fmt.Fprintf(r.out, "Error running command: %s\n", cmdErr.Command)
	if cmdErr.Timeout {
		fmt.Fprintln(r.out, "Command timed out")
	} else if cmdErr.Err != nil {
		fmt.Fprintf(r.out, "Cause: %v\n", cmdErr.Err)
	}
	fmt.Fprintf(r.out, "STDOUT: %s\n", cmdErr.Result.Stdout)
	fmt.Fprintf(r.out, "STDERR: %s\n", cmdErr.Result.Stderr)
}

// Outcome prints the verdict for one case.
func (r *Reporter) Outcome(outcome execution.Outcome) {
	name := outcome.Case.Name

	if outcome.Passed() {
		fmt.Fprintf(r.out, "%s: %s\n", r.paint("PASS", ansiGreen), name)
		return
	}

	fail := r.paint("FAIL", ansiRed)
	switch {
	case outcome.Reason == execution.ReasonWriteSource:
		fmt.Fprintf(r.out, "%s: Could not write source for %s: %v\n", fail, name, outcome.Err)
	case outcome.Stage == execution.StageCompile:
		r.CommandFailed(outcome.Err)
		fmt.Fprintf(r.out, "%s: Compilation failed for %s\n", fail, name)
	case outcome.Stage == execution.StageExecute:
		r.CommandFailed(outcome.Err)
		fmt.Fprintf(r.out, "%s: VM execution failed for %s\n", fail, name)
	case outcome.Reason == execution.ReasonMalformedOutput:
		fmt.Fprintf(r.out, "%s: Register output malformed for %s: %v\n", fail, name, outcome.Err)
		fmt.Fprintf(r.out, "VM Output: %s\n", outcome.Diagnostics)
	default:
		for _, m := range outcome.Mismatches {
			fmt.Fprintf(r.out, "%s: %s - %s\n", fail, name, m)
		}
		fmt.Fprintf(r.out, "Actual Regs: %s\n", outcome.Actual)
	}
}

func (r *Reporter) Summary(summary execution.Summary) {
	fmt.Fprintf(r.out, "\nSummary: %d/%d tests passed.\n", summary.Passed, summary.Total)
}

func (r *Reporter) paint(token, color string) string {
	if !r.color {
		return token
	}
	return color + token + ansiReset
}
