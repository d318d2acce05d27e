package ports

import (
	"context"

	"vmharness/internal/domain/execution"
)

// CaseSource yields test cases in declaration order and returns io.EOF when exhausted.
type CaseSource interface {
	NextCase(ctx context.Context) (execution.TestCase, error)
}
