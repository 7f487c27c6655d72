package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/scanlog/internal/config"
	"github.com/roach88/scanlog/internal/ledger"
	"github.com/roach88/scanlog/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // optional YAML config file
	Database string // overrides the configured database path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scanlog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scanlog",
		Short: "scanlog - append-only scan ledger",
		Long: `Record scanned 10-character values, reject duplicates against the full
history, and let admins edit, delete and restore records through an
append-only mutation log.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewMutateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewCompactCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig loads the config file and environment, then applies flag
// overrides. --verbose lowers the log level to debug.
func (o *RootOptions) loadConfig(out *OutputFormatter) (config.Config, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return config.Config{}, out.Fail("failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// logger builds the process logger. Logs go to w so command output on
// stdout stays parseable.
func (o *RootOptions) logger(cfg config.Config, w io.Writer) *slog.Logger {
	return config.SetupLogger(cfg, w)
}

// openLedger loads config, opens the store and builds a ledger service.
// The caller must close the returned store.
func (o *RootOptions) openLedger(cmd *cobra.Command) (*ledger.Service, *store.Store, config.Config, error) {
	out := o.formatter(cmd)
	cfg, err := o.loadConfig(out)
	if err != nil {
		return nil, nil, config.Config{}, err
	}
	logger := o.logger(cfg, cmd.ErrOrStderr())

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, config.Config{}, out.Fail("failed to open database", err)
	}

	svc := ledger.New(st,
		ledger.WithLogger(logger),
		ledger.WithHistoryLimit(cfg.HistoryLimit),
		ledger.WithPageSize(cfg.PageSize),
	)
	return svc, st, cfg, nil
}
