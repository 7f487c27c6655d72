package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scanlog/internal/model"
)

// Scenario defines a scripted run against a fresh ledger.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Flow lists the operations to execute, in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state after the flow.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation of the flow. Exactly one of Scan, Mutate or Compact
// is set.
type Step struct {
	// Scan submits a candidate value.
	Scan string `yaml:"scan,omitempty"`

	// Mutate appends a mutation.
	Mutate *MutateStep `yaml:"mutate,omitempty"`

	// Compact runs a compaction.
	Compact bool `yaml:"compact,omitempty"`

	// Expect validates the step outcome. If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// MutateStep describes a mutation request.
type MutateStep struct {
	Record int64  `yaml:"record"`
	Kind   string `yaml:"kind"`
	Value  string `yaml:"value,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Verdict is the expected scan verdict (NEW, DUPLICATE_LIVE, ...).
	Verdict string `yaml:"verdict,omitempty"`

	// Record is the expected record id of a scan: the new record for NEW,
	// the matching record for duplicates.
	Record int64 `yaml:"record,omitempty"`

	// Error is the expected error code. The step must fail with it.
	Error string `yaml:"error,omitempty"`

	// Pruned lists the mutation ids a compaction is expected to prune.
	Pruned []int64 `yaml:"pruned,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": record current value and/or status
	// - "absent": record does not exist
	// - "verdict": verdict for Value against final state
	// - "counts": stored record and mutation counts
	Type string `yaml:"type"`

	// Record is the record id (used by final_state and absent).
	Record int64 `yaml:"record,omitempty"`

	// Expect holds the expected "value" and/or "status" (used by final_state).
	Expect map[string]string `yaml:"expect,omitempty"`

	// Value is the candidate to resolve (used by verdict).
	Value string `yaml:"value,omitempty"`

	// Verdict is the expected verdict kind (used by verdict).
	Verdict string `yaml:"verdict,omitempty"`

	// Records and Mutations are the expected counts (used by counts).
	Records   *int `yaml:"records,omitempty"`
	Mutations *int `yaml:"mutations,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertAbsent     = "absent"
	AssertVerdict    = "verdict"
	AssertCounts     = "counts"
)

// Operation names used in traces.
const (
	OpScan    = "scan"
	OpMutate  = "mutate"
	OpCompact = "compact"
)

// Op returns the operation name of the step.
func (s Step) Op() string {
	switch {
	case s.Scan != "":
		return OpScan
	case s.Mutate != nil:
		return OpMutate
	case s.Compact:
		return OpCompact
	default:
		return ""
	}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	set := 0
	if step.Scan != "" {
		set++
	}
	if step.Mutate != nil {
		set++
	}
	if step.Compact {
		set++
	}
	if set != 1 {
		return fmt.Errorf("flow[%d]: exactly one of scan, mutate or compact is required", index)
	}

	if step.Mutate != nil && step.Mutate.Kind == "" {
		return fmt.Errorf("flow[%d].mutate: kind is required", index)
	}

	e := step.Expect
	if e == nil {
		return nil
	}
	if e.Verdict != "" {
		if step.Op() != OpScan {
			return fmt.Errorf("flow[%d].expect: verdict only applies to scan", index)
		}
		if !knownVerdict(e.Verdict) {
			return fmt.Errorf("flow[%d].expect: unknown verdict %q", index, e.Verdict)
		}
	}
	if e.Verdict != "" && e.Error != "" {
		return fmt.Errorf("flow[%d].expect: verdict and error are mutually exclusive", index)
	}
	if len(e.Pruned) > 0 && step.Op() != OpCompact {
		return fmt.Errorf("flow[%d].expect: pruned only applies to compact", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState:
		if a.Record <= 0 {
			return fmt.Errorf("assertions[%d]: record is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		for k := range a.Expect {
			if k != "value" && k != "status" {
				return fmt.Errorf("assertions[%d]: unknown final_state field %q", index, k)
			}
		}
	case AssertAbsent:
		if a.Record <= 0 {
			return fmt.Errorf("assertions[%d]: record is required for absent", index)
		}
	case AssertVerdict:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for verdict", index)
		}
		if !knownVerdict(a.Verdict) {
			return fmt.Errorf("assertions[%d]: unknown verdict %q", index, a.Verdict)
		}
	case AssertCounts:
		if a.Records == nil && a.Mutations == nil {
			return fmt.Errorf("assertions[%d]: records or mutations is required for counts", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownVerdict(v string) bool {
	switch model.VerdictKind(v) {
	case model.VerdictNew, model.VerdictDuplicateLive, model.VerdictDuplicateStale, model.VerdictDuplicateDeleted:
		return true
	}
	return false
}
