package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/scanlog/internal/compactor"
	"github.com/roach88/scanlog/internal/model"
	"github.com/roach88/scanlog/internal/store"
)

// CompactOptions holds flags for the compact command.
type CompactOptions struct {
	*RootOptions
	DryRun    bool
	List      bool
	BackupDir string

	// RunIDs overrides the random run id source (for testing).
	RunIDs compactor.RunIDGenerator
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Merge colliding records and prune redundant mutations",
		Long: `Merge records that share a current value and prune redundant mutations.

Records whose current values collide fold into the record with the smallest
id: their mutations are repointed to it and the other records are removed,
so the keeper's status can change. A DELETE on a deleted record and a
RESTORE on a record that is not deleted are pruned. A compressed backup is
written before any change, and all changes commit in one transaction.

Exit codes:
  0 - Compaction applied, or nothing to do
  1 - Compaction rolled back
  2 - Command error

Examples:
  scanlog compact --dry-run
  scanlog compact --backup-dir /var/backups/scanlog
  scanlog compact --list`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the plan without writing")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list previous compaction runs")
	cmd.Flags().StringVar(&opts.BackupDir, "backup-dir", "", "backup directory (overrides config)")

	return cmd
}

func runCompact(opts *CompactOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	cfg, err := opts.loadConfig(out)
	if err != nil {
		return err
	}
	if opts.BackupDir != "" {
		cfg.BackupDir = opts.BackupDir
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())

	st, err := store.Open(cfg.Database)
	if err != nil {
		return out.Fail("failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		return listCompactionRuns(cmd, out, st)
	}

	copts := []compactor.Option{compactor.WithLogger(logger)}
	if opts.RunIDs != nil {
		copts = append(copts, compactor.WithRunIDGenerator(opts.RunIDs))
	}
	c := compactor.New(st, cfg.BackupDir, copts...)

	var outcome compactor.Outcome
	if opts.DryRun {
		outcome, err = c.DryRun(cmd.Context())
	} else {
		outcome, err = c.Run(cmd.Context())
	}
	if err != nil {
		if outcome.BackupPath != "" {
			logger.Error("database left unchanged, backup retained", slog.String("backup", outcome.BackupPath))
		}
		return out.Fail("compaction failed", err)
	}

	return out.Print(outcome, func(w io.Writer) {
		switch {
		case opts.DryRun:
			fmt.Fprintln(w, "Dry run, nothing written.")
		case outcome.Applied:
			fmt.Fprintf(w, "✓ Compaction %s applied\n", outcome.RunID)
			fmt.Fprintf(w, "  backup: %s\n", outcome.BackupPath)
		}
		_ = outcome.Report.WriteText(w)
		if opts.Verbose {
			fmt.Fprintf(w, "digest: %s\n", outcome.Digest)
		}
	})
}

func listCompactionRuns(cmd *cobra.Command, out *OutputFormatter, st *store.Store) error {
	runs, err := st.ListCompactionRuns(cmd.Context())
	if err != nil {
		return out.Fail("failed to list compaction runs", err)
	}
	return out.Print(runs, func(w io.Writer) {
		if len(runs) == 0 {
			fmt.Fprintln(w, "No compaction runs.")
			return
		}
		for _, r := range runs {
			fmt.Fprintf(w, "%s  %s  %s\n", model.FormatDisplayTime(r.CreatedAt), r.RunID, r.BackupPath)
		}
	})
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the database with a compaction backup",
		Long: `Replace the configured database file with the contents of a backup written
by compact. Stop any running server first.

Example:
  scanlog restore backups/compaction-20250314T093000Z-<run-id>.db.zst`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runRestore(opts *RootOptions, cmd *cobra.Command, backup string) error {
	out := opts.formatter(cmd)
	cfg, err := opts.loadConfig(out)
	if err != nil {
		return err
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())

	if err := store.RestoreBackup(backup, cfg.Database); err != nil {
		_ = out.Error("E_RESTORE", "restore failed", err.Error())
		return WrapExitError(ExitCommandError, "restore failed", err)
	}
	logger.Info("database restored", slog.String("backup", backup), slog.String("path", cfg.Database))

	// Reopen to check the restored file is a usable database.
	st, err := store.Open(cfg.Database)
	if err != nil {
		return out.Fail("restored database does not open", err)
	}
	defer st.Close()

	snap, err := st.Snapshot(cmd.Context())
	if err != nil {
		return out.Fail("failed to read restored database", err)
	}

	result := map[string]any{
		"database":  cfg.Database,
		"backup":    backup,
		"records":   len(snap.Records),
		"mutations": len(snap.Mutations),
	}
	return out.Print(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Restored %s from %s (%d records, %d mutations)\n",
			cfg.Database, backup, len(snap.Records), len(snap.Mutations))
	})
}
