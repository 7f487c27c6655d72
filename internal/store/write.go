package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/scanlog/internal/model"
)

// CheckFunc inspects a snapshot taken under the writer lock. A non-nil error
// aborts the insert and is returned unchanged to the caller.
type CheckFunc func(Snapshot) error

// CreateRecord inserts a new original record and returns its id.
// Returns a DUPLICATE_VALUE error if value already exists as an original.
func (s *Store) CreateRecord(ctx context.Context, value string) (int64, error) {
	return s.CreateRecordChecked(ctx, value, nil)
}

// CreateRecordChecked is CreateRecord with a check run against a fresh
// snapshot while the writer lock is held, so no other insert can land between
// the check and the insert.
func (s *Store) CreateRecordChecked(ctx context.Context, value string, check CheckFunc) (int64, error) {
	if err := model.ValidateValue(value); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if check != nil {
		snap, err := s.readSnapshot(ctx)
		if err != nil {
			return 0, err
		}
		if err := check(snap); err != nil {
			return 0, err
		}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO qr_records (qr_string, scan_date)
		VALUES (?, ?)
	`, value, formatTime(s.clock.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, model.NewDuplicateValueError(value, err)
		}
		return 0, model.NewStorageError("create record", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, model.NewStorageError("create record: last insert id", err)
	}
	return id, nil
}

// AppendMutation appends a mutation to the log and returns its id.
//
// The request is rejected before any write when the kind is invalid, an EDIT
// value has the wrong length, or the record does not exist.
func (s *Store) AppendMutation(ctx context.Context, req model.MutationRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, model.NewStorageError("append mutation: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM qr_records WHERE id = ?`, req.RecordID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.NewUnknownRecordError(req.RecordID)
	}
	if err != nil {
		return 0, model.NewStorageError("append mutation: check record", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO qr_mutations (record_id, action, new_string, mutation_date)
		VALUES (?, ?, ?, ?)
	`,
		req.RecordID,
		string(req.Kind),
		nullableValue(req),
		formatTime(s.clock.Now()),
	)
	if err != nil {
		return 0, model.NewStorageError("append mutation: insert", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, model.NewStorageError("append mutation: last insert id", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, model.NewStorageError("append mutation: commit", err)
	}
	return id, nil
}
