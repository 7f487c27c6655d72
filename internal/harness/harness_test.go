package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scanlog/internal/model"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_Passes(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/scan_lifecycle.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Trace, len(s.Flow))
	assert.Equal(t, 1, result.Records)
	assert.Equal(t, 3, result.Mutations)
}

func TestRun_TraceSequence(t *testing.T) {
	s := mustParse(t, `
name: seq
description: trace numbering
flow:
  - scan: AAAAAAAAAA
  - mutate: { record: 1, kind: DELETE }
  - compact: true
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	for i, ev := range result.Trace {
		assert.Equal(t, i+1, ev.Seq)
	}
	assert.Equal(t, string(model.VerdictNew), result.Trace[0].Outcome)
	assert.Equal(t, int64(1), result.Trace[1].MutationID)
	assert.Equal(t, OutcomeOK, result.Trace[2].Outcome)
	require.NotNil(t, result.Trace[2].Report)
	assert.False(t, result.Trace[2].Report.Changed())

	assert.Equal(t, model.StatusDeleted, result.State[1].Status)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/compaction_merge.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	a := Snapshot{ScenarioName: s.Name, Trace: first.Trace, State: first.State}
	b := Snapshot{ScenarioName: s.Name, Trace: second.Trace, State: second.State}
	ja, err := a.CanonicalJSON()
	require.NoError(t, err)
	jb, err := b.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestRun_UnexpectedError(t *testing.T) {
	s := mustParse(t, `
name: unexpected
description: a failing step without expect
flow:
  - mutate: { record: 7, kind: DELETE }
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error UNKNOWN_RECORD")
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	s := mustParse(t, `
name: missing_error
description: step succeeds but an error was expected
flow:
  - scan: AAAAAAAAAA
    expect: { error: VALIDATION }
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error VALIDATION, got NEW")
}

func TestRun_WrongVerdictAndRecord(t *testing.T) {
	s := mustParse(t, `
name: wrong_verdict
description: expectations that do not hold
flow:
  - scan: AAAAAAAAAA
    expect: { verdict: DUPLICATE_LIVE, record: 5 }
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected verdict DUPLICATE_LIVE, got NEW")
	assert.Contains(t, result.Errors[1], "expected record 5, got 1")
}

func TestRun_WrongPruned(t *testing.T) {
	s := mustParse(t, `
name: wrong_pruned
description: compaction prunes something else
flow:
  - scan: AAAAAAAAAA
  - mutate: { record: 1, kind: DELETE }
  - mutate: { record: 1, kind: DELETE }
  - compact: true
    expect: { pruned: [1] }
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected pruned [1], got [2]")
}

func TestRun_FailedAssertions(t *testing.T) {
	s := mustParse(t, `
name: failed_assertions
description: assertions that do not hold
flow:
  - scan: AAAAAAAAAA
assertions:
  - type: final_state
    record: 1
    expect: { status: DELETED }
  - type: absent
    record: 1
  - type: counts
    records: 2
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], `status: expected "DELETED", got "ACTIVE"`)
	assert.Contains(t, result.Errors[1], "record 1 to be absent")
	assert.Contains(t, result.Errors[2], "records: expected 2, got 1")
}

func TestRun_CancelledContext(t *testing.T) {
	s := mustParse(t, `
name: cancelled
description: storage errors abort the run
flow:
  - scan: AAAAAAAAAA
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow step 0")
}
