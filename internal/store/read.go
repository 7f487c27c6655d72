package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/scanlog/internal/model"
)

// Snapshot is a consistent copy of both tables, ordered by id.
// Records and Mutations are never nil.
type Snapshot struct {
	Records   []model.Record
	Mutations []model.Mutation
}

// Snapshot reads every record and every mutation in one transaction.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readSnapshot(ctx)
}

// readSnapshot reads both tables without taking s.mu.
func (s *Store) readSnapshot(ctx context.Context) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, model.NewStorageError("snapshot: begin tx", err)
	}
	defer tx.Rollback()

	records, err := readRecords(ctx, tx)
	if err != nil {
		return Snapshot{}, model.NewStorageError("snapshot", err)
	}

	mutations, err := readMutations(ctx, tx)
	if err != nil {
		return Snapshot{}, model.NewStorageError("snapshot", err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, model.NewStorageError("snapshot: commit", err)
	}

	return Snapshot{Records: records, Mutations: mutations}, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readRecords(ctx context.Context, q queryer) ([]model.Record, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, qr_string, scan_date
		FROM qr_records
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func readMutations(ctx context.Context, q queryer) ([]model.Mutation, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, record_id, action, new_string, mutation_date
		FROM qr_mutations
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	mutations := []model.Mutation{}
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return mutations, nil
}

// ReadRecord retrieves a single record by id.
// Returns an UNKNOWN_RECORD error if it does not exist.
func (s *Store) ReadRecord(ctx context.Context, id int64) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, qr_string, scan_date
		FROM qr_records
		WHERE id = ?
	`, id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, model.NewUnknownRecordError(id)
	}
	if err != nil {
		return model.Record{}, model.NewStorageError("read record", err)
	}
	return r, nil
}

// CompactionRun is an audit row written by every applied compaction.
type CompactionRun struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	BackupPath string    `json:"backup_path"`
	Report     string    `json:"report"`
	Digest     string    `json:"digest"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListCompactionRuns returns applied compaction runs, oldest first.
func (s *Store) ListCompactionRuns(ctx context.Context) ([]CompactionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, backup_path, report, digest, created_at
		FROM compaction_runs
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, model.NewStorageError("list compaction runs", err)
	}
	defer rows.Close()

	runs := []CompactionRun{}
	for rows.Next() {
		var (
			run     CompactionRun
			created string
		)
		if err := rows.Scan(&run.ID, &run.RunID, &run.BackupPath, &run.Report, &run.Digest, &created); err != nil {
			return nil, model.NewStorageError("scan compaction run", err)
		}
		if run.CreatedAt, err = parseTime(created); err != nil {
			return nil, model.NewStorageError("scan compaction run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("iterate compaction runs", err)
	}
	return runs, nil
}
