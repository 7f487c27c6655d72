package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/scan_lifecycle.yaml")
	require.NoError(t, err)

	assert.Equal(t, "scan_lifecycle", s.Name)
	assert.NotEmpty(t, s.Description)
	require.Len(t, s.Flow, 11)

	assert.Equal(t, OpScan, s.Flow[0].Op())
	assert.Equal(t, "NEW", s.Flow[0].Expect.Verdict)
	assert.Equal(t, int64(1), s.Flow[0].Expect.Record)

	assert.Equal(t, OpMutate, s.Flow[2].Op())
	assert.Equal(t, "EDIT", s.Flow[2].Mutate.Kind)
	assert.Equal(t, "BBBBBBBBBB", s.Flow[2].Mutate.Value)

	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertCounts, s.Assertions[3].Type)
	require.NotNil(t, s.Assertions[3].Records)
	assert.Equal(t, 1, *s.Assertions[3].Records)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/unknown_field.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nflow:\n  - scan: AAAAAAAAAA\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nflow:\n  - scan: AAAAAAAAAA\n",
			want: "description is required",
		},
		{
			name: "empty flow",
			yaml: "name: n\ndescription: d\n",
			want: "flow list is required",
		},
		{
			name: "step with two operations",
			yaml: "name: n\ndescription: d\nflow:\n  - scan: AAAAAAAAAA\n    compact: true\n",
			want: "flow[0]: exactly one of scan, mutate or compact",
		},
		{
			name: "empty step",
			yaml: "name: n\ndescription: d\nflow:\n  - expect: { error: VALIDATION }\n",
			want: "flow[0]: exactly one of scan, mutate or compact",
		},
		{
			name: "mutate without kind",
			yaml: "name: n\ndescription: d\nflow:\n  - mutate: { record: 1 }\n",
			want: "flow[0].mutate: kind is required",
		},
		{
			name: "verdict on mutate",
			yaml: "name: n\ndescription: d\nflow:\n  - mutate: { record: 1, kind: DELETE }\n    expect: { verdict: NEW }\n",
			want: "verdict only applies to scan",
		},
		{
			name: "unknown verdict",
			yaml: "name: n\ndescription: d\nflow:\n  - scan: AAAAAAAAAA\n    expect: { verdict: MAYBE }\n",
			want: `unknown verdict "MAYBE"`,
		},
		{
			name: "verdict and error",
			yaml: "name: n\ndescription: d\nflow:\n  - scan: AAAAAAAAAA\n    expect: { verdict: NEW, error: VALIDATION }\n",
			want: "mutually exclusive",
		},
		{
			name: "pruned on scan",
			yaml: "name: n\ndescription: d\nflow:\n  - scan: AAAAAAAAAA\n    expect: { pruned: [1] }\n",
			want: "pruned only applies to compact",
		},
		{
			name: "unknown assertion type",
			yaml: "name: n\ndescription: d\nflow:\n  - compact: true\nassertions:\n  - type: trace_order\n",
			want: `unknown assertion type "trace_order"`,
		},
		{
			name: "final_state without record",
			yaml: "name: n\ndescription: d\nflow:\n  - compact: true\nassertions:\n  - type: final_state\n    expect: { status: ACTIVE }\n",
			want: "record is required for final_state",
		},
		{
			name: "final_state unknown field",
			yaml: "name: n\ndescription: d\nflow:\n  - compact: true\nassertions:\n  - type: final_state\n    record: 1\n    expect: { colour: red }\n",
			want: `unknown final_state field "colour"`,
		},
		{
			name: "counts without values",
			yaml: "name: n\ndescription: d\nflow:\n  - compact: true\nassertions:\n  - type: counts\n",
			want: "records or mutations is required",
		},
		{
			name: "verdict assertion without value",
			yaml: "name: n\ndescription: d\nflow:\n  - compact: true\nassertions:\n  - type: verdict\n    verdict: NEW\n",
			want: "value is required for verdict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStep_Op(t *testing.T) {
	assert.Equal(t, OpScan, Step{Scan: "AAAAAAAAAA"}.Op())
	assert.Equal(t, OpMutate, Step{Mutate: &MutateStep{Record: 1, Kind: "DELETE"}}.Op())
	assert.Equal(t, OpCompact, Step{Compact: true}.Op())
	assert.Equal(t, "", Step{}.Op())
}
