package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/scanlog/internal/compactor"
	"github.com/roach88/scanlog/internal/engine"
	"github.com/roach88/scanlog/internal/ledger"
	"github.com/roach88/scanlog/internal/model"
	"github.com/roach88/scanlog/internal/store"
	"github.com/roach88/scanlog/internal/testutil"
)

// RunIDPrefix prefixes the sequential compaction run ids of a scenario.
const RunIDPrefix = "scenario-run"

// Harness executes scenario steps against one store.
type Harness struct {
	ledger    *ledger.Service
	compactor *compactor.Compactor
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh database in a temporary directory that is
// removed afterwards. Expectation and assertion failures are reported in
// Result.Errors; an error is returned only when the scenario could not be
// executed at all (storage failure, unexpected non-domain error).
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "scanlog-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"), store.WithClock(testutil.NewStepClock()))
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	comp := compactor.New(st, filepath.Join(dir, "backups"),
		compactor.WithLogger(logger),
		compactor.WithClock(testutil.NewStepClock()),
		compactor.WithRunIDGenerator(testutil.NewSequenceIDGenerator(RunIDPrefix)),
	)
	h := &Harness{
		ledger:    ledger.New(st, ledger.WithLogger(logger)),
		compactor: comp,
		logger:    logger,
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	snap, err := st.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.State = engine.Reconstruct(snap.Records, snap.Mutations)
	result.Records = len(snap.Records)
	result.Mutations = len(snap.Mutations)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, appends its trace event and checks its expect
// clause. Only errors that prevent the scenario from continuing are returned.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	var (
		ev      TraceEvent
		stepErr error
	)

	switch step.Op() {
	case OpScan:
		ev = TraceEvent{Op: OpScan, Value: step.Scan}
		res, err := h.ledger.Scan(ctx, step.Scan)
		if err == nil {
			ev.Outcome = string(res.Verdict.Kind)
			ev.RecordID = res.RecordID
		}
		stepErr = err

	case OpMutate:
		m := step.Mutate
		ev = TraceEvent{Op: OpMutate, Kind: m.Kind, RecordID: m.Record, Value: m.Value}
		id, err := h.ledger.Mutate(ctx, model.MutationRequest{
			RecordID: m.Record,
			Kind:     model.MutationKind(m.Kind),
			NewValue: m.Value,
		})
		if err == nil {
			ev.Outcome = OutcomeOK
			ev.MutationID = id
		}
		stepErr = err

	case OpCompact:
		ev = TraceEvent{Op: OpCompact}
		out, err := h.compactor.Run(ctx)
		if err == nil {
			ev.Outcome = OutcomeOK
			report := out.Report
			ev.Report = &report
		}
		stepErr = err

	default:
		return fmt.Errorf("step has no operation")
	}

	if stepErr != nil {
		code := model.CodeOf(stepErr)
		if code == "" || code == model.ErrCodeStorage {
			return stepErr
		}
		ev.Outcome = string(code)
	}
	result.AddTrace(ev)

	h.logger.Info("scenario step completed",
		"step", i,
		"op", ev.Op,
		"outcome", ev.Outcome,
	)

	checkExpect(i, step, ev, result)
	return nil
}

// checkExpect compares the executed step against its expect clause.
func checkExpect(i int, step Step, ev TraceEvent, result *Result) {
	e := step.Expect
	switch {
	case e != nil && e.Error != "":
		if ev.Outcome != e.Error {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got %s", i, ev.Op, e.Error, ev.Outcome))
		}
		return
	case !succeeded(ev):
		result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error %s", i, ev.Op, ev.Outcome))
		return
	case e == nil:
		return
	}

	if e.Verdict != "" && ev.Outcome != e.Verdict {
		result.AddError(fmt.Sprintf("flow[%d] scan %q: expected verdict %s, got %s", i, ev.Value, e.Verdict, ev.Outcome))
	}
	if e.Record != 0 && ev.RecordID != e.Record {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected record %d, got %d", i, ev.Op, e.Record, ev.RecordID))
	}
	if len(e.Pruned) > 0 && ev.Report != nil && !slices.Equal(ev.Report.Pruned, e.Pruned) {
		result.AddError(fmt.Sprintf("flow[%d] compact: expected pruned %v, got %v", i, e.Pruned, ev.Report.Pruned))
	}
}

func succeeded(ev TraceEvent) bool {
	if ev.Op == OpScan {
		return knownVerdict(ev.Outcome)
	}
	return ev.Outcome == OutcomeOK
}
