package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scanlog/internal/model"
	"github.com/roach88/scanlog/internal/store"
	"github.com/roach88/scanlog/internal/testutil"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "scan.db"), store.WithClock(testutil.NewStepClock()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(st, opts...), st
}

func mustScan(t *testing.T, s *Service, value string) ScanResult {
	t.Helper()
	res, err := s.Scan(context.Background(), value)
	require.NoError(t, err)
	return res
}

func mustMutate(t *testing.T, s *Service, id int64, kind model.MutationKind, value string) {
	t.Helper()
	_, err := s.Mutate(context.Background(), model.MutationRequest{RecordID: id, Kind: kind, NewValue: value})
	require.NoError(t, err)
}

func TestScan_NewThenDuplicate(t *testing.T) {
	s, _ := newTestService(t)

	first := mustScan(t, s, "AAAAAAAAAA")
	assert.True(t, first.Created())
	assert.Equal(t, int64(1), first.RecordID)
	assert.Equal(t, MessageSaved, first.Message)

	second := mustScan(t, s, "AAAAAAAAAA")
	assert.False(t, second.Created())
	assert.Equal(t, model.VerdictDuplicateLive, second.Verdict.Kind)
	assert.Equal(t, int64(1), second.RecordID)
	assert.Contains(t, second.Message, "First submitted on March 14, 2025 at 09:30:00")
}

func TestScan_TrimsWhitespace(t *testing.T) {
	s, _ := newTestService(t)

	mustScan(t, s, "  AAAAAAAAAA\n")
	res := mustScan(t, s, "AAAAAAAAAA")
	assert.Equal(t, model.VerdictDuplicateLive, res.Verdict.Kind)
}

func TestScan_RejectsWrongLength(t *testing.T) {
	s, st := newTestService(t)

	for _, v := range []string{"", "SHORT", "ELEVENCHARS"} {
		_, err := s.Scan(context.Background(), v)
		require.Error(t, err, "value %q", v)
		assert.True(t, model.IsValidation(err), "value %q: %v", v, err)
	}

	snap, err := st.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
}

func TestScan_CaseSensitive(t *testing.T) {
	s, _ := newTestService(t)

	mustScan(t, s, "AAAAAAAAAA")
	res := mustScan(t, s, "aaaaaaaaaa")
	assert.True(t, res.Created())
}

func TestScan_DeletedRecord(t *testing.T) {
	s, _ := newTestService(t)

	id := mustScan(t, s, "AAAAAAAAAA").RecordID
	mustMutate(t, s, id, model.KindDelete, "")

	res := mustScan(t, s, "AAAAAAAAAA")
	assert.Equal(t, model.VerdictDuplicateDeleted, res.Verdict.Kind)
	assert.Contains(t, res.Message, "deleted by an admin")
}

func TestScan_StaleAndLockedValues(t *testing.T) {
	s, _ := newTestService(t)

	id := mustScan(t, s, "AAAAAAAAAA").RecordID
	mustMutate(t, s, id, model.KindEdit, "BBBBBBBBBB")

	stale := mustScan(t, s, "BBBBBBBBBB")
	assert.Equal(t, model.VerdictDuplicateStale, stale.Verdict.Kind)
	assert.Equal(t, id, stale.RecordID)

	// The original value is no longer visible, but the store still holds it.
	_, err := s.Scan(context.Background(), "AAAAAAAAAA")
	require.Error(t, err)
	assert.True(t, model.IsDuplicateValue(err))
	assert.Contains(t, err.Error(), "restore it via the admin panel")
}

func TestScan_ConcurrentSameValue(t *testing.T) {
	s, st := newTestService(t)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Scan(context.Background(), "AAAAAAAAAA")
			if err != nil {
				t.Errorf("Scan: %v", err)
				return
			}
			if res.Created() {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	snap, err := st.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Records, 1)
}

func TestScan_CountsVerdicts(t *testing.T) {
	s, _ := newTestService(t)
	live := scanVerdicts.WithLabelValues(string(model.VerdictDuplicateLive))
	before := promtest.ToFloat64(live)

	mustScan(t, s, "AAAAAAAAAA")
	mustScan(t, s, "AAAAAAAAAA")
	mustScan(t, s, "AAAAAAAAAA")

	assert.Equal(t, before+2, promtest.ToFloat64(live))
}

func TestMutate_Rejections(t *testing.T) {
	s, _ := newTestService(t)
	id := mustScan(t, s, "AAAAAAAAAA").RecordID
	ctx := context.Background()

	_, err := s.Mutate(ctx, model.MutationRequest{RecordID: 99, Kind: model.KindDelete})
	assert.True(t, model.IsUnknownRecord(err))

	_, err = s.Mutate(ctx, model.MutationRequest{RecordID: id, Kind: "PURGE"})
	assert.True(t, model.IsInvalidMutationKind(err))

	_, err = s.Mutate(ctx, model.MutationRequest{RecordID: id, Kind: model.KindEdit, NewValue: "short"})
	assert.True(t, model.IsValidation(err))
}

func TestMutate_RestoreKeepsEditedValue(t *testing.T) {
	s, _ := newTestService(t)
	id := mustScan(t, s, "AAAAAAAAAA").RecordID

	mustMutate(t, s, id, model.KindEdit, "BBBBBBBBBB")
	mustMutate(t, s, id, model.KindDelete, "")
	mustMutate(t, s, id, model.KindRestore, "")

	state, err := s.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusEdited, state[id].Status)
	assert.Equal(t, "BBBBBBBBBB", state[id].CurrentValue)
}

func TestHistory(t *testing.T) {
	s, _ := newTestService(t, WithHistoryLimit(3))

	for i := range 5 {
		mustScan(t, s, fmt.Sprintf("VALUE%05d", i))
	}
	mustMutate(t, s, 5, model.KindDelete, "")
	mustMutate(t, s, 2, model.KindEdit, "EDITED0002")

	got, err := s.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{4, 3, 2}, []int64{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "EDITED0002", got[2].CurrentValue)

	all, err := s.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRecords_Pagination(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	for i := range 45 {
		mustScan(t, s, fmt.Sprintf("VALUE%05d", i))
	}
	mustMutate(t, s, 45, model.KindDelete, "")

	page1, err := s.Records(ctx, RecordQuery{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Equal(t, 45, page1.TotalRecords)
	require.Len(t, page1.Records, DefaultPageSize)
	assert.Equal(t, int64(45), page1.Records[0].ID, "deleted records are listed")
	assert.Equal(t, model.StatusDeleted, page1.Records[0].Status)

	page3, err := s.Records(ctx, RecordQuery{Page: 3})
	require.NoError(t, err)
	require.Len(t, page3.Records, 5)
	assert.Equal(t, int64(1), page3.Records[4].ID)

	past, err := s.Records(ctx, RecordQuery{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, past.Records)
	assert.Equal(t, 9, past.CurrentPage)

	zero, err := s.Records(ctx, RecordQuery{Page: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, zero.CurrentPage)
}

func TestRecords_Search(t *testing.T) {
	s, _ := newTestService(t, WithPageSize(2))
	ctx := context.Background()

	mustScan(t, s, "ALPHA00001")
	mustScan(t, s, "BETA000002")
	mustScan(t, s, "ALPHA00003")
	mustMutate(t, s, 2, model.KindEdit, "ALPHA00002")

	page, err := s.Records(ctx, RecordQuery{Search: "ALPHA", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalRecords)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, int64(3), page.Records[0].ID)

	none, err := s.Records(ctx, RecordQuery{Search: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 0, none.TotalRecords)
	assert.Equal(t, 1, none.TotalPages)
	assert.Empty(t, none.Records)
}
