package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/roach88/scanlog/internal/ledger"
	"github.com/roach88/scanlog/internal/model"
)

// Handler implements the HTTP endpoints on top of a ledger.Service.
type Handler struct {
	ledger *ledger.Service
	pinger Pinger
	logger *slog.Logger
}

// Scan response statuses.
const (
	statusSuccess   = "success"
	statusDuplicate = "duplicate"
	statusError     = "error"
)

type scanRequest struct {
	QRString string `json:"qr_string"`
}

type scanResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Verdict  string `json:"verdict,omitempty"`
	RecordID int64  `json:"record_id,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type historyEntry struct {
	QRString string `json:"qr_string"`
	ScanDate string `json:"scan_date"`
}

type adminRecord struct {
	ID               int64  `json:"id"`
	QRString         string `json:"qr_string"`
	OriginalString   string `json:"original_string"`
	OriginalDate     string `json:"original_date"`
	Status           string `json:"status"`
	LastMutationDate string `json:"last_mutation_date,omitempty"`
}

type recordsResponse struct {
	Records      []adminRecord `json:"records"`
	CurrentPage  int           `json:"current_page"`
	TotalPages   int           `json:"total_pages"`
	TotalRecords int           `json:"total_records"`
}

type mutateRequest struct {
	RecordID  int64  `json:"record_id"`
	Action    string `json:"action"`
	NewString string `json:"new_string"`
}

type mutateResponse struct {
	Status     string `json:"status"`
	MutationID int64  `json:"mutation_id"`
}

// Health reports 200 while the store answers a ping and 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ProcessScan submits one scanned value.
func (h *Handler) ProcessScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: statusError, Message: "invalid JSON body"})
		return
	}

	res, err := h.ledger.Scan(r.Context(), req.QRString)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := statusSuccess
	if !res.Created() {
		status = statusDuplicate
	}
	writeJSON(w, http.StatusOK, scanResponse{
		Status:   status,
		Message:  res.Message,
		Verdict:  string(res.Verdict.Kind),
		RecordID: res.RecordID,
	})
}

// History lists the most recent records that are not deleted. The optional
// limit query parameter overrides the configured default.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: statusError, Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.ledger.History(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]historyEntry, len(records))
	for i, rs := range records {
		out[i] = historyEntry{
			QRString: rs.CurrentValue,
			ScanDate: model.FormatDisplayTime(rs.CreatedAt),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Records returns one page of the admin listing.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	q := ledger.RecordQuery{Search: r.URL.Query().Get("search"), Page: 1}
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: statusError, Message: "page must be an integer"})
			return
		}
		q.Page = n
	}

	page, err := h.ledger.Records(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := recordsResponse{
		Records:      make([]adminRecord, len(page.Records)),
		CurrentPage:  page.CurrentPage,
		TotalPages:   page.TotalPages,
		TotalRecords: page.TotalRecords,
	}
	for i, rs := range page.Records {
		rec := adminRecord{
			ID:             rs.ID,
			QRString:       rs.CurrentValue,
			OriginalString: rs.OriginalValue,
			OriginalDate:   model.FormatDisplayTime(rs.CreatedAt),
			Status:         string(rs.Status),
		}
		if !rs.LastMutationAt.IsZero() {
			rec.LastMutationDate = model.FormatDisplayTime(rs.LastMutationAt)
		}
		resp.Records[i] = rec
	}
	writeJSON(w, http.StatusOK, resp)
}

// Mutate appends an EDIT, DELETE or RESTORE to the log.
func (h *Handler) Mutate(w http.ResponseWriter, r *http.Request) {
	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: statusError, Message: "invalid JSON body"})
		return
	}

	id, err := h.ledger.Mutate(r.Context(), model.MutationRequest{
		RecordID: req.RecordID,
		Kind:     model.MutationKind(req.Action),
		NewValue: req.NewString,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutateResponse{Status: statusSuccess, MutationID: id})
}

// writeError maps domain errors to status codes. Anything that is not a
// caller mistake is a 500 with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *model.Error
	if !errors.As(err, &e) || e.Code == model.ErrCodeStorage || e.Code == model.ErrCodeCompactionFailure {
		h.logger.ErrorContext(r.Context(), "request failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Code:    string(model.ErrCodeStorage),
			Message: "internal storage error",
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, errorResponse{
		Status:  statusError,
		Code:    string(e.Code),
		Message: e.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
