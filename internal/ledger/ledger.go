package ledger

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/scanlog/internal/engine"
	"github.com/roach88/scanlog/internal/model"
	"github.com/roach88/scanlog/internal/store"
)

const (
	// DefaultHistoryLimit is the number of records History returns when the
	// caller passes no limit.
	DefaultHistoryLimit = 10

	// DefaultPageSize is the Records page size.
	DefaultPageSize = 20
)

// MessageSaved is returned with every accepted scan.
const MessageSaved = "Record saved successfully."

// MessageLocked explains a DUPLICATE_VALUE from the store: the value is an
// original of some record but no record currently shows it.
const MessageLocked = "This exact string is locked in the database history. Please restore it via the admin panel."

// errDuplicateVerdict aborts the insert after the resolver found a duplicate.
var errDuplicateVerdict = errors.New("duplicate verdict")

// Service reads and writes records through a store.
type Service struct {
	store        *store.Store
	logger       *slog.Logger
	historyLimit int
	pageSize     int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithHistoryLimit sets the default History limit.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithPageSize sets the Records page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New creates a Service backed by st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:        st,
		logger:       slog.Default(),
		historyLimit: DefaultHistoryLimit,
		pageSize:     DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "ledger"))
	return s
}

// ScanResult is the outcome of Scan. RecordID is the new record on NEW and
// the matching record for duplicates.
type ScanResult struct {
	Verdict  model.Verdict
	RecordID int64
	Message  string
}

// Created reports whether the scan stored a new record.
func (r ScanResult) Created() bool {
	return r.Verdict.Kind == model.VerdictNew
}

// Scan submits candidate. Surrounding whitespace is trimmed first.
//
// Duplicates are results, not errors. Errors are VALIDATION for a malformed
// candidate, DUPLICATE_VALUE when the value is locked in the record store
// without being visible in the current state, and STORAGE.
func (s *Service) Scan(ctx context.Context, candidate string) (ScanResult, error) {
	candidate = strings.TrimSpace(candidate)
	if err := model.ValidateValue(candidate); err != nil {
		scanRejections.WithLabelValues(string(model.CodeOf(err))).Inc()
		return ScanResult{}, err
	}

	var verdict model.Verdict
	id, err := s.store.CreateRecordChecked(ctx, candidate, func(snap store.Snapshot) error {
		v, err := engine.Resolve(candidate, engine.Reconstruct(snap.Records, snap.Mutations))
		if err != nil {
			return err
		}
		verdict = v
		if v.Kind.IsDuplicate() {
			return errDuplicateVerdict
		}
		return nil
	})

	switch {
	case errors.Is(err, errDuplicateVerdict):
		scanVerdicts.WithLabelValues(string(verdict.Kind)).Inc()
		s.logger.InfoContext(ctx, "scan rejected as duplicate",
			slog.String("verdict", string(verdict.Kind)),
			slog.Int64("record_id", verdict.RecordID),
		)
		return ScanResult{Verdict: verdict, RecordID: verdict.RecordID, Message: verdict.Message}, nil

	case model.IsDuplicateValue(err):
		var e *model.Error
		if errors.As(err, &e) {
			e.Message = MessageLocked
		}
		scanRejections.WithLabelValues(string(model.ErrCodeDuplicateValue)).Inc()
		s.logger.WarnContext(ctx, "scan hit a locked original value", slog.String("value", candidate))
		return ScanResult{}, err

	case err != nil:
		scanRejections.WithLabelValues(string(model.CodeOf(err))).Inc()
		return ScanResult{}, err
	}

	verdict.RecordID = id
	scanVerdicts.WithLabelValues(string(verdict.Kind)).Inc()
	s.logger.InfoContext(ctx, "record created", slog.Int64("record_id", id))
	return ScanResult{Verdict: verdict, RecordID: id, Message: MessageSaved}, nil
}

// Mutate appends req to the mutation log and returns the mutation id.
func (s *Service) Mutate(ctx context.Context, req model.MutationRequest) (int64, error) {
	id, err := s.store.AppendMutation(ctx, req)
	if err != nil {
		return 0, err
	}
	mutationsAppended.WithLabelValues(string(req.Kind)).Inc()
	s.logger.InfoContext(ctx, "mutation appended",
		slog.Int64("mutation_id", id),
		slog.Int64("record_id", req.RecordID),
		slog.String("kind", string(req.Kind)),
	)
	return id, nil
}

// State returns the current state of every record.
func (s *Service) State(ctx context.Context) (model.State, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Reconstruct(snap.Records, snap.Mutations), nil
}

// History returns up to limit records that are not DELETED, newest first.
// A limit <= 0 uses the configured default.
func (s *Service) History(ctx context.Context, limit int) ([]model.RecordState, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}

	live := make([]model.RecordState, 0, len(state))
	for _, rs := range state {
		if rs.Status != model.StatusDeleted {
			live = append(live, rs)
		}
	}
	sortNewestFirst(live)
	if len(live) > limit {
		live = live[:limit]
	}
	return live, nil
}

// RecordQuery selects a page of Records. Page counts from 1; values below 1
// are treated as 1. Search is a case-sensitive substring of the current value.
type RecordQuery struct {
	Search string
	Page   int
}

// RecordPage is one page of the admin listing.
type RecordPage struct {
	Records      []model.RecordState `json:"records"`
	CurrentPage  int                 `json:"current_page"`
	TotalPages   int                 `json:"total_pages"`
	TotalRecords int                 `json:"total_records"`
}

// Records lists every record, including DELETED ones, newest first.
// TotalPages is at least 1; a page past the end is empty.
func (s *Service) Records(ctx context.Context, q RecordQuery) (RecordPage, error) {
	state, err := s.State(ctx)
	if err != nil {
		return RecordPage{}, err
	}

	search := strings.TrimSpace(q.Search)
	matched := make([]model.RecordState, 0, len(state))
	for _, rs := range state {
		if search != "" && !strings.Contains(rs.CurrentValue, search) {
			continue
		}
		matched = append(matched, rs)
	}
	sortNewestFirst(matched)

	page := max(q.Page, 1)
	total := len(matched)
	pages := max((total+s.pageSize-1)/s.pageSize, 1)

	start := min((page-1)*s.pageSize, total)
	end := min(start+s.pageSize, total)

	return RecordPage{
		Records:      matched[start:end],
		CurrentPage:  page,
		TotalPages:   pages,
		TotalRecords: total,
	}, nil
}

func sortNewestFirst(records []model.RecordState) {
	slices.SortFunc(records, func(a, b model.RecordState) int {
		return cmp.Compare(b.ID, a.ID)
	})
}
