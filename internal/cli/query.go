package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scanlog/internal/ledger"
	"github.com/roach88/scanlog/internal/model"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent records that are not deleted",
		Long: `List the most recent records that are not deleted, newest first, with
their current values.

Example:
  scanlog history --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "number of records (default from config)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	svc, st, _, err := opts.openLedger(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := svc.History(cmd.Context(), opts.Limit)
	if err != nil {
		return out.Fail("failed to read history", err)
	}

	return out.Print(records, func(w io.Writer) {
		if len(records) == 0 {
			fmt.Fprintln(w, "No records.")
			return
		}
		for _, rs := range records {
			fmt.Fprintf(w, "%s  %s\n", rs.CurrentValue, model.FormatDisplayTime(rs.CreatedAt))
		}
	})
}

// RecordsOptions holds flags for the records command.
type RecordsOptions struct {
	*RootOptions
	Search string
	Page   int
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List every record with its reconstructed state",
		Long: `List every record, deleted ones included, newest first. --search filters
on a case-sensitive substring of the current value.

Examples:
  scanlog records
  scanlog records --search ABC --page 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "substring of the current value")
	cmd.Flags().IntVarP(&opts.Page, "page", "p", 1, "page number")

	return cmd
}

func runRecords(opts *RecordsOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	svc, st, _, err := opts.openLedger(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	page, err := svc.Records(cmd.Context(), ledger.RecordQuery{Search: opts.Search, Page: opts.Page})
	if err != nil {
		return out.Fail("failed to list records", err)
	}

	return out.Print(page, func(w io.Writer) {
		fmt.Fprintf(w, "Page %d of %d (%d records)\n", page.CurrentPage, page.TotalPages, page.TotalRecords)
		for _, rs := range page.Records {
			line := fmt.Sprintf("%6d  %-8s %s", rs.ID, rs.Status, rs.CurrentValue)
			if rs.Diverged() {
				line += fmt.Sprintf("  (original %s)", rs.OriginalValue)
			}
			fmt.Fprintln(w, line)
		}
	})
}
