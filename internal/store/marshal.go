package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/scanlog/internal/model"
)

// timeLayout is used for every timestamp written by this package.
const timeLayout = time.RFC3339Nano

// legacyTimeLayout is how legacy databases store scan_date and mutation_date.
const legacyTimeLayout = model.DisplayTimeLayout

// formatTime converts t to its stored TEXT form.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp in either the current or legacy layout.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(legacyTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads id, qr_string, scan_date.
func scanRecord(row rowScanner) (model.Record, error) {
	var (
		r       model.Record
		created string
	)
	if err := row.Scan(&r.ID, &r.OriginalValue, &created); err != nil {
		return model.Record{}, fmt.Errorf("scan record: %w", err)
	}
	t, err := parseTime(created)
	if err != nil {
		return model.Record{}, fmt.Errorf("scan record %d: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}

// scanMutation reads id, record_id, action, new_string, mutation_date.
func scanMutation(row rowScanner) (model.Mutation, error) {
	var (
		m        model.Mutation
		kind     string
		newValue sql.NullString
		created  string
	)
	if err := row.Scan(&m.ID, &m.RecordID, &kind, &newValue, &created); err != nil {
		return model.Mutation{}, fmt.Errorf("scan mutation: %w", err)
	}
	m.Kind = model.MutationKind(kind)
	if m.Kind == model.KindEdit {
		m.NewValue = newValue.String
	}
	t, err := parseTime(created)
	if err != nil {
		return model.Mutation{}, fmt.Errorf("scan mutation %d: %w", m.ID, err)
	}
	m.CreatedAt = t
	return m, nil
}

// nullableValue stores NewValue only for EDIT.
func nullableValue(m model.MutationRequest) sql.NullString {
	if m.Kind != model.KindEdit {
		return sql.NullString{}
	}
	return sql.NullString{String: m.NewValue, Valid: true}
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
