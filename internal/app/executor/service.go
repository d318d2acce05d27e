package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"vmharness/internal/domain/execution"
	"vmharness/internal/ports"
)

// Service builds the toolchain once and then drives test cases strictly in order.
type Service struct {
	runner      ports.CommandRunner
	buildRunner ports.CommandRunner
	toolchain   Toolchain
	reporter    *Reporter
	publisher   ports.OutcomePublisher
	builder     *builder
	cases       *caseRunner
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher forwards every outcome and the final summary to publisher.
func WithPublisher(publisher ports.OutcomePublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithBuildRunner runs the build steps through runner instead of the one used
// for test cases, typically to give make a longer deadline.
func WithBuildRunner(runner ports.CommandRunner) Option {
	return func(s *Service) {
		s.buildRunner = runner
	}
}

// NewService constructs a Service executing commands through runner.
func NewService(runner ports.CommandRunner, toolchain Toolchain, reporter *Reporter, opts ...Option) (*Service, error) {
	if err := toolchain.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		runner:      runner,
		buildRunner: runner,
		toolchain:   toolchain,
		reporter:    reporter,
		cases:       newCaseRunner(runner, toolchain),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = &builder{runner: s.buildRunner, toolchain: toolchain, reporter: reporter}
	return s, nil
}

// Execute builds the toolchain and runs every case the source yields.
//
// A build failure returns an error wrapping ErrBuildFailed before any case is
// requested from source. Per-case failures are reported and counted but never
// returned.
func (s *Service) Execute(ctx context.Context, source ports.CaseSource) (execution.Summary, error) {
	if err := s.builder.Build(ctx); err != nil {
		s.reporter.BuildAborted()
		return execution.Summary{}, err
	}

	var summary execution.Summary
	for {
		tc, err := source.NextCase(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("get next case: %w", err)
		}

		s.reporter.CaseStarted(tc)
		outcome := s.cases.Run(ctx, tc)
		s.reporter.Outcome(outcome)
		summary.Record(outcome)

		if s.publisher != nil {
			if err := s.publisher.PublishOutcome(ctx, outcome); err != nil {
				log.Printf("warning: failed to publish outcome for %q: %v", tc.Name, err)
			}
		}
	}

	s.reporter.Summary(summary)
	if s.publisher != nil {
		if err := s.publisher.PublishSummary(ctx, summary); err != nil {
			log.Printf("warning: failed to publish summary: %v", err)
		}
	}

	return summary, nil
}

// Close releases the command runners and the publisher, if any.
func (s *Service) Close() error {
	var errs []error
	if err := s.runner.Close(); err != nil {
		errs = append(errs, fmt.Errorf("command runner: %w", err))
	}
	if s.buildRunner != s.runner {
		if err := s.buildRunner.Close(); err != nil {
			errs = append(errs, fmt.Errorf("build runner: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
