package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// pruneBatchSize bounds the number of ids bound to one DELETE statement.
const pruneBatchSize = 500

// Maintenance is a handle valid only inside Store.Maintenance. Its methods
// run without taking the store locks because the exclusive lock is held.
type Maintenance struct {
	s *Store
}

// Maintenance runs fn while holding the store-wide exclusive lock. No
// snapshot, insert or other maintenance runs until fn returns.
func (s *Store) Maintenance(ctx context.Context, fn func(ctx context.Context, m *Maintenance) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &Maintenance{s: s})
}

// Snapshot reads both tables.
func (m *Maintenance) Snapshot(ctx context.Context) (Snapshot, error) {
	return m.s.readSnapshot(ctx)
}

// CompactionChanges describes one compaction run to apply atomically.
type CompactionChanges struct {
	// Repoint maps each removed record id to its keeper. Mutations of the
	// removed record are moved to the keeper, then the record is deleted.
	Repoint map[int64]int64

	// Prune lists mutation ids to delete after repointing.
	Prune []int64

	// ExpectRecords and ExpectMutations are the row counts the tables must
	// have after the changes; any difference rolls the run back.
	ExpectRecords   int
	ExpectMutations int

	RunID      string
	BackupPath string
	Report     string
	Digest     string
}

// ApplyCompaction applies changes in a single transaction. Any error,
// including context cancellation, rolls every change back.
func (m *Maintenance) ApplyCompaction(ctx context.Context, changes CompactionChanges) error {
	s := m.s
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply compaction: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	removed := make([]int64, 0, len(changes.Repoint))
	for id := range changes.Repoint {
		removed = append(removed, id)
	}
	slices.Sort(removed)

	for _, id := range removed {
		keeper := changes.Repoint[id]
		if _, err := tx.ExecContext(ctx, `
			UPDATE qr_mutations SET record_id = ? WHERE record_id = ?
		`, keeper, id); err != nil {
			return fmt.Errorf("apply compaction: repoint record %d to %d: %w", id, keeper, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM qr_records WHERE id = ?`, id); err != nil {
			return fmt.Errorf("apply compaction: delete record %d: %w", id, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("apply compaction: %w", err)
	}

	for batch := range slices.Chunk(changes.Prune, pruneBatchSize) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM qr_mutations WHERE id IN ("+placeholders+")", args...); err != nil {
			return fmt.Errorf("apply compaction: prune mutations: %w", err)
		}
	}

	if err := verifyCount(ctx, tx, "qr_records", changes.ExpectRecords); err != nil {
		return fmt.Errorf("apply compaction: %w", err)
	}
	if err := verifyCount(ctx, tx, "qr_mutations", changes.ExpectMutations); err != nil {
		return fmt.Errorf("apply compaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO compaction_runs (run_id, backup_path, report, digest, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		changes.RunID,
		changes.BackupPath,
		changes.Report,
		changes.Digest,
		formatTime(s.clock.Now()),
	); err != nil {
		return fmt.Errorf("apply compaction: record run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply compaction: commit: %w", err)
	}
	return nil
}

// verifyCount checks the row count of table inside the transaction.
func verifyCount(ctx context.Context, q queryer, table string, want int) error {
	var got int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&got); err != nil {
		return fmt.Errorf("count %s: %w", table, err)
	}
	if got != want {
		return fmt.Errorf("%s has %d rows after changes, expected %d", table, got, want)
	}
	return nil
}
