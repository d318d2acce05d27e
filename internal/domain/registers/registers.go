// Package registers parses and compares the register dump printed by the VM runner.
package registers

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrMalformedEntry marks an entry without exactly one '=' separator.
	ErrMalformedEntry = errors.New("malformed register entry")
	// ErrInvalidValue marks an entry whose value is not a signed integer.
	ErrInvalidValue = errors.New("invalid register value")
)

const entrySeparator = ", "

var regsLine = regexp.MustCompile(`Regs: (.*)`)

// State maps register identifiers such as "R1" to their values.
type State map[string]int64

// Parse extracts the first "Regs: ..." line from output.
//
// Output without such a line yields an empty State and no error; a missing
// register is reported later by Verify.
func Parse(output string) (State, error) {
	match := regsLine.FindStringSubmatch(output)
	if match == nil {
		return State{}, nil
	}

	state := State{}
	for _, entry := range strings.Split(match[1], entrySeparator) {
		if strings.Count(entry, "=") != 1 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedEntry, entry)
		}
		id, raw, _ := strings.Cut(entry, "=")
		value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidValue, entry, err)
		}
		state[id] = value
	}
	return state, nil
}

// IDs returns the register identifiers in natural order (R2 before R10).
func (s State) IDs() []string {
	return slices.SortedFunc(maps.Keys(s), compareIDs)
}

// String renders the state as "R0=1, R1=2" in natural register order.
func (s State) String() string {
	parts := make([]string, 0, len(s))
	for _, id := range s.IDs() {
		parts = append(parts, fmt.Sprintf("%s=%d", id, s[id]))
	}
	return strings.Join(parts, entrySeparator)
}

func compareIDs(a, b string) int {
	prefixA, numA, okA := splitID(a)
	prefixB, numB, okB := splitID(b)
	if okA && okB && prefixA == prefixB && numA != numB {
		if numA < numB {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func splitID(id string) (string, int, bool) {
	idx := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if idx < 0 {
		return id, 0, false
	}
	n, err := strconv.Atoi(id[idx:])
	if err != nil {
		return id, 0, false
	}
	return id[:idx], n, true
}
