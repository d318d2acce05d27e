package registers

import "fmt"

// Mismatch describes one expected register that the actual state does not satisfy.
type Mismatch struct {
	Register string
	Expected int64
	Actual   int64
	Missing  bool
}

func (m Mismatch) String() string {
	if m.Missing {
		return fmt.Sprintf("Register %s not found in output", m.Register)
	}
	return fmt.Sprintf("%s = %d (expected %d)", m.Register, m.Actual, m.Expected)
}

// Verify checks every expected register against actual. Registers present in
// actual but absent from expected are ignored. Mismatches come back in natural
// register order.
func Verify(expected, actual State) []Mismatch {
	var mismatches []Mismatch
	for _, id := range expected.IDs() {
		want := expected[id]
		got, ok := actual[id]
		switch {
		case !ok:
			mismatches = append(mismatches, Mismatch{Register: id, Expected: want, Missing: true})
		case got != want:
			mismatches = append(mismatches, Mismatch{Register: id, Expected: want, Actual: got})
		}
	}
	return mismatches
}
