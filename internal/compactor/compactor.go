package compactor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/scanlog/internal/model"
	"github.com/roach88/scanlog/internal/store"
)

// RunIDGenerator names compaction runs.
type RunIDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

// PlanFunc computes a compaction plan. Plan is the default.
type PlanFunc func(records []model.Record, mutations []model.Mutation) (Result, error)

// Compactor applies compaction plans to a store.
type Compactor struct {
	store     *store.Store
	backupDir string
	logger    *slog.Logger
	ids       RunIDGenerator
	clock     store.Clock
	plan      PlanFunc
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compactor) { c.logger = l }
}

// WithRunIDGenerator overrides the random run id source.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Compactor) { c.ids = g }
}

// WithClock overrides the clock used to name backup files.
func WithClock(clock store.Clock) Option {
	return func(c *Compactor) { c.clock = clock }
}

// WithPlanFunc replaces Plan.
func WithPlanFunc(fn PlanFunc) Option {
	return func(c *Compactor) { c.plan = fn }
}

// New creates a Compactor for s writing backups under backupDir.
func New(s *store.Store, backupDir string, opts ...Option) *Compactor {
	c := &Compactor{
		store:     s,
		backupDir: backupDir,
		logger:    slog.Default(),
		ids:       uuidGenerator{},
		clock:     utcClock{},
		plan:      Plan,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// Outcome describes a finished run. Applied is false when the plan was empty;
// no backup is written in that case.
type Outcome struct {
	RunID      string `json:"run_id,omitempty"`
	BackupPath string `json:"backup_path,omitempty"`
	Digest     string `json:"digest"`
	Report     Report `json:"report"`
	Applied    bool   `json:"applied"`
}

// DryRun plans a compaction against a snapshot without writing anything.
func (c *Compactor) DryRun(ctx context.Context) (Outcome, error) {
	snap, err := c.store.Snapshot(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("dry run: %w", err)
	}
	result, err := c.plan(snap.Records, snap.Mutations)
	if err != nil {
		return Outcome{}, err
	}
	digest, err := result.Report.Digest()
	if err != nil {
		return Outcome{}, model.NewCompactionError("digest report", err)
	}
	return Outcome{Digest: digest, Report: result.Report}, nil
}

// Run compacts the store. The whole run holds the store's exclusive lock.
//
// On any failure, including context cancellation, the transaction is rolled
// back, the backup file is kept, and a COMPACTION_FAILURE is returned.
func (c *Compactor) Run(ctx context.Context) (Outcome, error) {
	var out Outcome
	err := c.store.Maintenance(ctx, func(ctx context.Context, m *store.Maintenance) error {
		snap, err := m.Snapshot(ctx)
		if err != nil {
			return err
		}

		result, err := c.plan(snap.Records, snap.Mutations)
		if err != nil {
			return err
		}
		out.Report = result.Report

		canonical, err := result.Report.CanonicalJSON()
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if out.Digest, err = result.Report.Digest(); err != nil {
			return fmt.Errorf("digest report: %w", err)
		}

		if !result.Report.Changed() {
			c.logger.Info("compaction skipped, nothing to do",
				"records", result.Report.RecordsBefore,
				"mutations", result.Report.MutationsBefore,
			)
			return nil
		}

		out.RunID = c.ids.Generate()
		out.BackupPath = filepath.Join(c.backupDir, backupName(c.clock.Now(), out.RunID))
		if err := m.Backup(ctx, out.BackupPath); err != nil {
			out.BackupPath = ""
			return err
		}
		c.logger.Info("compaction backup written", "run_id", out.RunID, "path", out.BackupPath)

		if err := m.ApplyCompaction(ctx, store.CompactionChanges{
			Repoint:         repointMap(result.Report.Merges),
			Prune:           result.Report.Pruned,
			ExpectRecords:   len(result.Records),
			ExpectMutations: len(result.Mutations),
			RunID:           out.RunID,
			BackupPath:      out.BackupPath,
			Report:          string(canonical),
			Digest:          out.Digest,
		}); err != nil {
			return err
		}
		out.Applied = true
		return nil
	})
	if err != nil {
		c.logger.Error("compaction rolled back",
			"run_id", out.RunID,
			"backup", out.BackupPath,
			"error", err,
		)
		if model.IsCompactionFailure(err) {
			return out, err
		}
		return out, model.NewCompactionError("compaction run rolled back", err)
	}

	if out.Applied {
		c.logger.Info("compaction applied",
			"run_id", out.RunID,
			"merged", len(out.Report.Merges),
			"pruned", len(out.Report.Pruned),
			"orphans", len(out.Report.Orphans),
			"digest", out.Digest,
		)
	}
	return out, nil
}

func repointMap(merges []MergeGroup) map[int64]int64 {
	repoint := make(map[int64]int64)
	for _, g := range merges {
		for _, id := range g.Removed {
			repoint[id] = g.Keeper
		}
	}
	return repoint
}

// backupName returns "compaction-<UTC timestamp>-<run id>.db.zst".
func backupName(at time.Time, runID string) string {
	return "compaction-" + at.UTC().Format("20060102T150405Z") + "-" + runID + store.BackupSuffix
}
