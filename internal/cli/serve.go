package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/scanlog/internal/api"
	"github.com/roach88/scanlog/internal/ledger"
	"github.com/roach88/scanlog/internal/server"
	"github.com/roach88/scanlog/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan and admin HTTP API",
		Long: `Serve the HTTP API until SIGINT or SIGTERM.

Routes:
  GET  /health              liveness and database ping
  GET  /metrics             Prometheus metrics
  GET  /history             recent records that are not deleted
  POST /process-qr          submit a scanned value
  GET  /admin/api/records   paginated listing (search, page)
  POST /admin/api/mutate    append EDIT, DELETE or RESTORE

Example:
  scanlog serve --db ./scanlog.db --listen :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	cfg, err := opts.loadConfig(out)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	logger := opts.logger(cfg, cmd.ErrOrStderr())

	logger.Info("opening database", slog.String("path", cfg.Database))
	st, err := store.Open(cfg.Database)
	if err != nil {
		return out.Fail("failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", slog.Any("error", closeErr))
		}
	}()

	svc := ledger.New(st,
		ledger.WithLogger(logger),
		ledger.WithHistoryLimit(cfg.HistoryLimit),
		ledger.WithPageSize(cfg.PageSize),
	)
	srv := server.New(cfg, api.NewRouter(svc, st, logger), logger)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return out.Fail("server error", err)
	}
	return nil
}
