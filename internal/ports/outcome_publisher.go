package ports

import (
	"context"

	"vmharness/internal/domain/execution"
)

// OutcomePublisher forwards verdicts to an external system.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome execution.Outcome) error
	PublishSummary(ctx context.Context, summary execution.Summary) error
	Close() error
}
