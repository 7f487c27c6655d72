package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/scanlog/internal/engine"
	"github.com/roach88/scanlog/internal/model"
)

// Snapshot captures the observable outcome of a scenario execution.
// Timestamps are left out; the trace and the final values fully determine it.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        model.State
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, since model.MarshalCanonical only handles primitives, maps
// and slices.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":     ev.Seq,
			"op":      ev.Op,
			"outcome": ev.Outcome,
		}
		if ev.Value != "" {
			m["value"] = ev.Value
		}
		if ev.Kind != "" {
			m["kind"] = ev.Kind
		}
		if ev.RecordID != 0 {
			m["record_id"] = ev.RecordID
		}
		if ev.MutationID != 0 {
			m["mutation_id"] = ev.MutationID
		}
		if ev.Report != nil {
			m["report"] = ev.Report.CanonicalMap()
		}
		trace[i] = m
	}

	ids := engine.SortedIDs(s.State)
	state := make([]any, len(ids))
	for i, id := range ids {
		rs := s.State[id]
		state[i] = map[string]any{
			"id":       id,
			"value":    rs.CurrentValue,
			"original": rs.OriginalValue,
			"status":   string(rs.Status),
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"final_state":   state,
	}
}

// CanonicalJSON returns the canonical JSON encoding of s.
func (s *Snapshot) CanonicalJSON() ([]byte, error) {
	return model.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	}
	data, err := snapshot.CanonicalJSON()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
