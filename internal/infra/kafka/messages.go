package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"vmharness/internal/domain/execution"
	"vmharness/internal/domain/registers"
)

const (
	messageTypeOutcome = "outcome"
	messageTypeSummary = "summary"
	summaryKey         = "summary"
)

type outcomeEnvelope struct {
	Type        string             `json:"type"`
	Name        string             `json:"name"`
	Stage       execution.Stage    `json:"stage"`
	Success     bool               `json:"success"`
	Passed      bool               `json:"passed"`
	Reason      execution.Reason   `json:"reason,omitempty"`
	Diagnostics string             `json:"diagnostics,omitempty"`
	Expected    map[string]int64   `json:"expected,omitempty"`
	Actual      map[string]int64   `json:"actual,omitempty"`
	Mismatches  []mismatchEnvelope `json:"mismatches,omitempty"`
	Error       string             `json:"error,omitempty"`
	DurationMs  int64              `json:"duration_ms"`
	Timestamp   time.Time          `json:"timestamp"`
}

type mismatchEnvelope struct {
	Register string `json:"register"`
	Expected int64  `json:"expected"`
	Actual   *int64 `json:"actual,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
}

type summaryEnvelope struct {
	Type      string    `json:"type"`
	Passed    int       `json:"passed"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

func encodeOutcome(outcome execution.Outcome) ([]byte, error) {
	return canonicalJSON(makeOutcomeEnvelope(outcome))
}

func encodeSummary(summary execution.Summary) ([]byte, error) {
	return canonicalJSON(summaryEnvelope{
		Type:      messageTypeSummary,
		Passed:    summary.Passed,
		Total:     summary.Total,
		Timestamp: time.Now().UTC(),
	})
}

// canonicalJSON emits RFC 8785 JSON so equal reports always produce equal bytes.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize envelope: %w", err)
	}
	return canonical, nil
}

func makeOutcomeEnvelope(outcome execution.Outcome) outcomeEnvelope {
	errMsg := ""
	if outcome.Err != nil {
		errMsg = outcome.Err.Error()
	}

	var mismatches []mismatchEnvelope
	for _, m := range outcome.Mismatches {
		entry := mismatchEnvelope{Register: m.Register, Expected: m.Expected, Missing: m.Missing}
		if !m.Missing {
			actual := m.Actual
			entry.Actual = &actual
		}
		mismatches = append(mismatches, entry)
	}

	return outcomeEnvelope{
		Type:        messageTypeOutcome,
		Name:        outcome.Case.Name,
		Stage:       outcome.Stage,
		Success:     outcome.Success,
		Passed:      outcome.Passed(),
		Reason:      outcome.Reason,
		Diagnostics: outcome.Diagnostics,
		Expected:    stateMap(outcome.Case.ExpectedRegisters),
		Actual:      stateMap(outcome.Actual),
		Mismatches:  mismatches,
		Error:       errMsg,
		DurationMs:  outcome.Duration.Milliseconds(),
		Timestamp:   time.Now().UTC(),
	}
}

func stateMap(state registers.State) map[string]int64 {
	if len(state) == 0 {
		return nil
	}
	return map[string]int64(state)
}
