package producer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"vmharness/internal/domain/execution"
	"vmharness/internal/domain/registers"
	"vmharness/internal/ports"
)

// Service implements ports.CaseSource over a fixed, ordered catalogue.
type Service struct {
	mu    sync.Mutex
	cases []execution.TestCase
	index int
}

var _ ports.CaseSource = (*Service)(nil)

// NewService builds a producer holding the default register suite.
func NewService() *Service {
	return NewServiceWithCases(DefaultSuite()...)
}

// NewServiceWithCases builds a producer over the supplied cases, in order.
func NewServiceWithCases(cases ...execution.TestCase) *Service {
	return &Service{cases: append([]execution.TestCase(nil), cases...)}
}

// DefaultSuite returns the hard-coded scenarios the harness runs.
// The compiler allocates the first declared variable to R1.
func DefaultSuite() []execution.TestCase {
	return []execution.TestCase{
		{
			Name: "Simple Assignment",
			Source: `
start
  int a = 42;
end
`,
			ExpectedRegisters: registers.State{"R1": 42},
		},
		{
			Name: "Addition",
			Source: `
start
  int a = 10;
  int b = 20;
  a = a + b;
end
`,
			ExpectedRegisters: registers.State{"R1": 30},
		},
		{
			Name: "Loop",
			Source: `
start
  int x = 0;
  for (int i = 0; i < 5; i = i + 1) start
    x = x + 1;
  end
end
`,
			ExpectedRegisters: registers.State{"R1": 5},
		},
	}
}

// NextCase returns the next declared case, or io.EOF once the catalogue is drained.
func (s *Service) NextCase(ctx context.Context) (execution.TestCase, error) {
	select {
	case <-ctx.Done():
		return execution.TestCase{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.cases) {
		return execution.TestCase{}, io.EOF
	}

	tc := s.cases[s.index]
	s.index++

	return tc, nil
}

// AddCase appends a case to the end of the catalogue.
func (s *Service) AddCase(tc execution.TestCase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tc.Name == "" {
		tc.Name = fmt.Sprintf("case-%d", len(s.cases)+1)
	}

	s.cases = append(s.cases, tc)
}

// Remaining reports how many cases have not been handed out yet.
func (s *Service) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cases) - s.index
}
