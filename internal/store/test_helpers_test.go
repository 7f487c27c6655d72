package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/scanlog/internal/model"
	"github.com/roach88/scanlog/internal/testutil"
)

// createTestStore creates a new store on a temp file with a step clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewStepClock()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustCreate inserts a record and fails the test on error.
func mustCreate(t *testing.T, s *Store, value string) int64 {
	t.Helper()
	id, err := s.CreateRecord(context.Background(), value)
	if err != nil {
		t.Fatalf("CreateRecord(%q) failed: %v", value, err)
	}
	return id
}

// mustAppend appends a mutation and fails the test on error.
func mustAppend(t *testing.T, s *Store, recordID int64, kind model.MutationKind, newValue string) int64 {
	t.Helper()
	id, err := s.AppendMutation(context.Background(), model.MutationRequest{
		RecordID: recordID,
		Kind:     kind,
		NewValue: newValue,
	})
	if err != nil {
		t.Fatalf("AppendMutation(%d, %s) failed: %v", recordID, kind, err)
	}
	return id
}

// countRows returns the number of rows in table.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
