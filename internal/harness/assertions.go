package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/scanlog/internal/engine"
	"github.com/roach88/scanlog/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes the final state to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	State    model.State
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal state:\n")
	for _, id := range engine.SortedIDs(e.State) {
		rs := e.State[id]
		fmt.Fprintf(&buf, "  [%d] %s %q (original %q)\n", id, rs.Status, rs.CurrentValue, rs.OriginalValue)
	}

	return buf.String()
}

// EvaluateAssertions runs all assertions against result and returns the
// failure messages. An empty slice means every assertion passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(result.State, a)
	case AssertAbsent:
		return assertAbsent(result.State, a)
	case AssertVerdict:
		return assertVerdict(result.State, a)
	case AssertCounts:
		return assertCounts(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalState checks the fields listed in a.Expect (subset match).
func assertFinalState(state model.State, a Assertion) error {
	rs, ok := state[a.Record]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record %d to exist", a.Record),
			Actual:   "record not found",
			State:    state,
		}
	}

	actual := map[string]string{
		"value":  rs.CurrentValue,
		"status": string(rs.Status),
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		if actual[k] != a.Expect[k] {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %q, got %q", k, a.Expect[k], actual[k]))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("record %d with %v", a.Record, a.Expect),
		Actual:   strings.Join(mismatches, "; "),
		State:    state,
	}
}

func assertAbsent(state model.State, a Assertion) error {
	rs, ok := state[a.Record]
	if !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertAbsent,
		Expected: fmt.Sprintf("record %d to be absent", a.Record),
		Actual:   fmt.Sprintf("record %d is %s %q", a.Record, rs.Status, rs.CurrentValue),
		State:    state,
	}
}

func assertVerdict(state model.State, a Assertion) error {
	v, err := engine.Resolve(a.Value, state)
	if err != nil {
		return &AssertionError{
			Type:     AssertVerdict,
			Expected: fmt.Sprintf("%q to resolve to %s", a.Value, a.Verdict),
			Actual:   err.Error(),
			State:    state,
		}
	}
	if string(v.Kind) == a.Verdict {
		return nil
	}
	return &AssertionError{
		Type:     AssertVerdict,
		Expected: fmt.Sprintf("%q to resolve to %s", a.Value, a.Verdict),
		Actual:   fmt.Sprintf("%s (record %d)", v.Kind, v.RecordID),
		State:    state,
	}
}

func assertCounts(result *Result, a Assertion) error {
	var mismatches []string
	if a.Records != nil && *a.Records != result.Records {
		mismatches = append(mismatches, fmt.Sprintf("records: expected %d, got %d", *a.Records, result.Records))
	}
	if a.Mutations != nil && *a.Mutations != result.Mutations {
		mismatches = append(mismatches, fmt.Sprintf("mutations: expected %d, got %d", *a.Mutations, result.Mutations))
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertCounts,
		Expected: "stored row counts",
		Actual:   strings.Join(mismatches, "; "),
		State:    result.State,
	}
}
