package execution

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTimeout is reported when a command outlives its deadline.
var ErrTimeout = errors.New("command timed out")

// Command is an executable plus arguments run from a working directory.
type Command struct {
	Path string
	Args []string
	Dir  string
}

// String renders the command line the way a shell user would type it.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// CommandResult holds the captured streams of a finished command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandError is returned when a command exits non-zero, cannot be started,
// or is killed after its deadline. Result carries whatever output was captured.
type CommandError struct {
	Command Command
	Result  CommandResult
	Timeout bool
	Err     error
}

func (e *CommandError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("run %q in %s: %v", e.Command.String(), e.Command.Dir, ErrTimeout)
	case e.Err != nil:
		return fmt.Sprintf("run %q in %s: exit status %d: %v", e.Command.String(), e.Command.Dir, e.Result.ExitCode, e.Err)
	default:
		return fmt.Sprintf("run %q in %s: exit status %d", e.Command.String(), e.Command.Dir, e.Result.ExitCode)
	}
}

func (e *CommandError) Unwrap() error {
	if e.Timeout {
		return ErrTimeout
	}
	return e.Err
}
