package harness

import (
	"github.com/roach88/scanlog/internal/compactor"
	"github.com/roach88/scanlog/internal/model"
)

// OutcomeOK is the trace outcome of a mutation or compaction that succeeded.
const OutcomeOK = "OK"

// TraceEvent records one executed step.
//
// Outcome is the verdict kind for a successful scan, OutcomeOK for a
// successful mutation or compaction, and the error code for a failed step.
type TraceEvent struct {
	Seq        int               `json:"seq"`
	Op         string            `json:"op"`
	Value      string            `json:"value,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	RecordID   int64             `json:"record_id,omitempty"`
	MutationID int64             `json:"mutation_id,omitempty"`
	Outcome    string            `json:"outcome"`
	Report     *compactor.Report `json:"report,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the reconstructed state after the flow.
	State model.State `json:"state"`

	// Records and Mutations are the stored row counts after the flow.
	Records   int `json:"records"`
	Mutations int `json:"mutations"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  model.State{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends ev with the next sequence number.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
