package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/roach88/scanlog/internal/model"
	"github.com/roach88/scanlog/internal/testutil"
)

func TestCreateRecord_Basic(t *testing.T) {
	s := createTestStore(t)

	id := mustCreate(t, s, "AAAAAAAAAA")
	if id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}

	r, err := s.ReadRecord(context.Background(), id)
	if err != nil {
		t.Fatalf("ReadRecord() failed: %v", err)
	}
	if r.OriginalValue != "AAAAAAAAAA" {
		t.Errorf("OriginalValue = %q, want AAAAAAAAAA", r.OriginalValue)
	}
	if !r.CreatedAt.Equal(testutil.DefaultEpoch) {
		t.Errorf("CreatedAt = %v, want %v", r.CreatedAt, testutil.DefaultEpoch)
	}
}

func TestCreateRecord_DuplicateValue(t *testing.T) {
	s := createTestStore(t)
	mustCreate(t, s, "EEEEEEEEEE")

	_, err := s.CreateRecord(context.Background(), "EEEEEEEEEE")
	if !model.IsDuplicateValue(err) {
		t.Fatalf("second CreateRecord() error = %v, want DUPLICATE_VALUE", err)
	}

	var e *model.Error
	if errors.As(err, &e) && e.Value != "EEEEEEEEEE" {
		t.Errorf("error value = %q, want EEEEEEEEEE", e.Value)
	}
	if n := countRows(t, s, "qr_records"); n != 1 {
		t.Errorf("qr_records has %d rows, want 1", n)
	}
}

func TestCreateRecord_CaseSensitive(t *testing.T) {
	s := createTestStore(t)
	mustCreate(t, s, "ABCDEFGHIJ")

	if _, err := s.CreateRecord(context.Background(), "abcdefghij"); err != nil {
		t.Errorf("lowercase variant should be accepted: %v", err)
	}
}

func TestCreateRecord_Validation(t *testing.T) {
	s := createTestStore(t)

	_, err := s.CreateRecord(context.Background(), "SHORT")
	if !model.IsValidation(err) {
		t.Errorf("CreateRecord(SHORT) error = %v, want VALIDATION", err)
	}
	if n := countRows(t, s, "qr_records"); n != 0 {
		t.Errorf("qr_records has %d rows, want 0", n)
	}
}

func TestCreateRecordChecked_AbortsOnCheckError(t *testing.T) {
	s := createTestStore(t)
	mustCreate(t, s, "AAAAAAAAAA")

	sentinel := errors.New("rejected")
	var seen int
	_, err := s.CreateRecordChecked(context.Background(), "BBBBBBBBBB", func(snap Snapshot) error {
		seen = len(snap.Records)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want sentinel", err)
	}
	if seen != 1 {
		t.Errorf("check saw %d records, want 1", seen)
	}
	if n := countRows(t, s, "qr_records"); n != 1 {
		t.Errorf("qr_records has %d rows, want 1", n)
	}
}

func TestCreateRecord_ConcurrentSameValue(t *testing.T) {
	s := createTestStore(t)
	const workers = 8

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateRecord(context.Background(), "RACERACE00")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case model.IsDuplicateValue(err):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || duplicates != workers-1 {
		t.Errorf("created=%d duplicates=%d, want 1 and %d", created, duplicates, workers-1)
	}
}

func TestAppendMutation_Basic(t *testing.T) {
	s := createTestStore(t)
	rid := mustCreate(t, s, "AAAAAAAAAA")

	first := mustAppend(t, s, rid, model.KindEdit, "BBBBBBBBBB")
	second := mustAppend(t, s, rid, model.KindDelete, "")
	if second <= first {
		t.Errorf("mutation ids not increasing: %d then %d", first, second)
	}

	var newValue *string
	if err := s.db.QueryRow("SELECT new_string FROM qr_mutations WHERE id = ?", second).Scan(&newValue); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if newValue != nil {
		t.Errorf("DELETE new_string = %q, want NULL", *newValue)
	}
}

func TestAppendMutation_DropsValueForNonEdit(t *testing.T) {
	s := createTestStore(t)
	rid := mustCreate(t, s, "AAAAAAAAAA")

	mustAppend(t, s, rid, model.KindRestore, "IGNOREDVAL")

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if got := snap.Mutations[0].NewValue; got != "" {
		t.Errorf("RESTORE NewValue = %q, want empty", got)
	}
}

func TestAppendMutation_Rejections(t *testing.T) {
	s := createTestStore(t)
	rid := mustCreate(t, s, "AAAAAAAAAA")

	tests := []struct {
		name  string
		req   model.MutationRequest
		check func(error) bool
	}{
		{"unknown record", model.MutationRequest{RecordID: 99, Kind: model.KindDelete}, model.IsUnknownRecord},
		{"zero record", model.MutationRequest{Kind: model.KindDelete}, model.IsUnknownRecord},
		{"invalid kind", model.MutationRequest{RecordID: rid, Kind: "PURGE"}, model.IsInvalidMutationKind},
		{"lowercase kind", model.MutationRequest{RecordID: rid, Kind: "delete"}, model.IsInvalidMutationKind},
		{"edit wrong length", model.MutationRequest{RecordID: rid, Kind: model.KindEdit, NewValue: "TOOLONGVALUE"}, model.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AppendMutation(context.Background(), tt.req)
			if !tt.check(err) {
				t.Errorf("AppendMutation() error = %v", err)
			}
		})
	}

	if n := countRows(t, s, "qr_mutations"); n != 0 {
		t.Errorf("qr_mutations has %d rows after rejections, want 0", n)
	}
}

func TestAppendMutation_ConcurrentUniqueIDs(t *testing.T) {
	s := createTestStore(t)
	rid := mustCreate(t, s, "AAAAAAAAAA")
	const workers = 20

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.AppendMutation(context.Background(), model.MutationRequest{RecordID: rid, Kind: model.KindDelete})
			if err != nil {
				t.Errorf("AppendMutation() failed: %v", err)
				return
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != workers {
		t.Errorf("got %d distinct ids, want %d", len(ids), workers)
	}
}
