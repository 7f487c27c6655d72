// Package harness runs scripted scan, mutation and compaction scenarios
// against a real store and checks the outcome.
//
// Each scenario executes in a fresh database in a temporary directory, with a
// step clock and sequential compaction run ids, so two runs of the same
// scenario produce byte-identical traces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	flow:
//	  - scan: AAAAAAAAAA
//	    expect: { verdict: NEW, record: 1 }
//	  - mutate: { record: 1, kind: EDIT, value: BBBBBBBBBB }
//	  - scan: AAAAAAAAAA
//	    expect: { error: DUPLICATE_VALUE }
//	  - compact: true
//	assertions:
//	  - type: final_state
//	    record: 1
//	    expect: { value: BBBBBBBBBB, status: EDITED }
//	  - type: verdict
//	    value: BBBBBBBBBB
//	    verdict: DUPLICATE_STALE
//	  - type: counts
//	    records: 1
//	    mutations: 1
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - final_state: Checks the current value and status of one record
//   - absent: Checks that a record no longer exists (merged away)
//   - verdict: Resolves a candidate against the final state
//   - counts: Checks the number of stored records and mutations
//
// # Golden Files
//
// RunWithGolden serializes the trace and the final state as canonical JSON
// and compares it against testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
