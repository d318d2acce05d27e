package execution

import "vmharness/internal/domain/registers"

// TestCase describes one source program and the registers it must leave behind.
//
// Test cases are declared once and never mutated.
type TestCase struct {
	Name              string
	Source            string
	ExpectedRegisters registers.State
}
