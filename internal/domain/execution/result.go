package execution

import (
	"time"

	"vmharness/internal/domain/registers"
)

// Stage identifies how far a test case got through the pipeline.
type Stage string

const (
	StageBuild   Stage = "build"
	StageCompile Stage = "compile"
	StageExecute Stage = "execute"
	StageVerify  Stage = "verify"
)

// Reason tags why a stage failed. It is empty for a passing outcome.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonCommandFailed   Reason = "command_failed"
	ReasonTimeout         Reason = "timeout"
	ReasonWriteSource     Reason = "write_source"
	ReasonMalformedOutput Reason = "malformed_output"
	ReasonMismatch        Reason = "register_mismatch"
)

// Outcome captures the verdict for a single TestCase.
type Outcome struct {
	Case        TestCase
	Stage       Stage
	Success     bool
	Reason      Reason
	Diagnostics string
	Actual      registers.State
	Mismatches  []registers.Mismatch
	Err         error
	Duration    time.Duration
}

// Passed reports whether the case reached verification with no mismatches.
func (o Outcome) Passed() bool {
	return o.Success && o.Stage == StageVerify && len(o.Mismatches) == 0
}

// Summary tallies a sequential run.
type Summary struct {
	Passed int
	Total  int
}

// Record adds an outcome to the tally.
func (s *Summary) Record(outcome Outcome) {
	s.Total++
	if outcome.Passed() {
		s.Passed++
	}
}
