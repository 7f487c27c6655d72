package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/scanlog/internal/model"
)

// ScanResultOutput is the JSON payload of the scan command.
type ScanResultOutput struct {
	Status   string `json:"status"` // "success" or "duplicate"
	Verdict  string `json:"verdict"`
	RecordID int64  `json:"record_id"`
	Message  string `json:"message"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <value>",
		Short: "Submit a scanned value",
		Long: `Submit one 10-character value. The value is checked against every record,
including edited and deleted ones, and stored only when it is new.

Exit codes:
  0 - Value stored
  1 - Duplicate or rejected value
  2 - Command error

Example:
  scanlog scan --db ./scanlog.db ABCDEFGHIJ`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runScan(opts *RootOptions, cmd *cobra.Command, value string) error {
	out := opts.formatter(cmd)
	svc, st, _, err := opts.openLedger(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := svc.Scan(cmd.Context(), value)
	if err != nil {
		return out.Fail("scan rejected", err)
	}

	result := ScanResultOutput{
		Status:   "success",
		Verdict:  string(res.Verdict.Kind),
		RecordID: res.RecordID,
		Message:  res.Message,
	}
	if !res.Created() {
		result.Status = "duplicate"
	}

	if err := out.Print(result, func(w io.Writer) {
		if res.Created() {
			fmt.Fprintf(w, "✓ record %d: %s\n", res.RecordID, res.Message)
			return
		}
		fmt.Fprintf(w, "✗ %s (record %d): %s\n", res.Verdict.Kind, res.RecordID, res.Message)
	}); err != nil {
		return err
	}

	if !res.Created() {
		return NewExitError(ExitFailure, "duplicate value")
	}
	return nil
}

// MutateResultOutput is the JSON payload of the mutate command.
type MutateResultOutput struct {
	MutationID int64             `json:"mutation_id"`
	RecordID   int64             `json:"record_id"`
	Kind       string            `json:"kind"`
	State      model.RecordState `json:"state"`
}

// NewMutateCommand creates the mutate command.
func NewMutateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate <record-id> <EDIT|DELETE|RESTORE> [new-value]",
		Short: "Append an admin mutation to the log",
		Long: `Append an EDIT, DELETE or RESTORE for a record. Original values are never
changed; the mutation is replayed over them on every read.

RESTORE clears a deletion only. It does not undo edits.

Examples:
  scanlog mutate 12 EDIT ABCDEFGHIJ
  scanlog mutate 12 DELETE
  scanlog mutate 12 RESTORE`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutate(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runMutate(opts *RootOptions, cmd *cobra.Command, args []string) error {
	out := opts.formatter(cmd)

	recordID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		_ = out.Error("E_ARGS", fmt.Sprintf("invalid record id %q", args[0]), nil)
		return WrapExitError(ExitCommandError, "invalid record id", err)
	}
	kind, err := model.ParseKind(args[1])
	if err != nil {
		return out.Fail("mutation rejected", err)
	}
	req := model.MutationRequest{RecordID: recordID, Kind: kind}
	if len(args) == 3 {
		req.NewValue = args[2]
	}

	svc, st, _, err := opts.openLedger(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := svc.Mutate(cmd.Context(), req)
	if err != nil {
		return out.Fail("mutation rejected", err)
	}

	state, err := svc.State(cmd.Context())
	if err != nil {
		return out.Fail("failed to read state", err)
	}
	rs := state[recordID]

	return out.Print(MutateResultOutput{
		MutationID: id,
		RecordID:   recordID,
		Kind:       string(kind),
		State:      rs,
	}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ mutation %d: %s record %d\n", id, kind, recordID)
		fmt.Fprintf(w, "  now %s %q (original %q)\n", rs.Status, rs.CurrentValue, rs.OriginalValue)
	})
}
