package model

import (
	"errors"
	"fmt"
	"time"
)

// MutationKind identifies one of the three supported mutation events.
type MutationKind string

const (
	KindEdit    MutationKind = "EDIT"
	KindDelete  MutationKind = "DELETE"
	KindRestore MutationKind = "RESTORE"
)

// ValidKinds lists the accepted mutation kinds in canonical order.
var ValidKinds = []MutationKind{KindEdit, KindDelete, KindRestore}

// ParseKind converts a wire value into a MutationKind.
// Matching is exact; "edit" is rejected.
func ParseKind(s string) (MutationKind, error) {
	for _, k := range ValidKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &Error{
		Code:    ErrCodeInvalidMutationKind,
		Message: fmt.Sprintf("mutation kind %q is not one of %v", s, ValidKinds),
		Value:   s,
	}
}

// Status is the reconstructed lifecycle state of a record.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusEdited  Status = "EDITED"
	StatusDeleted Status = "DELETED"
)

// Record is an original scanned value.
type Record struct {
	ID            int64     `json:"id"`
	OriginalValue string    `json:"original_value"`
	CreatedAt     time.Time `json:"created_at"`
}

// Mutation is a single entry of the append-only mutation log.
// NewValue is set for EDIT only.
type Mutation struct {
	ID        int64        `json:"id"`
	RecordID  int64        `json:"record_id"`
	Kind      MutationKind `json:"kind"`
	NewValue  string       `json:"new_value,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// MutationRequest is a mutation that has not been assigned an id yet.
type MutationRequest struct {
	RecordID int64        `json:"record_id"`
	Kind     MutationKind `json:"kind"`
	NewValue string       `json:"new_value,omitempty"`
}

// Validate checks the request shape. Record existence is checked by the store.
func (r MutationRequest) Validate() error {
	if _, err := ParseKind(string(r.Kind)); err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.RecordID = r.RecordID
		}
		return err
	}
	if r.RecordID <= 0 {
		return &Error{
			Code:     ErrCodeUnknownRecord,
			Message:  "record id is required",
			RecordID: r.RecordID,
		}
	}
	if r.Kind == KindEdit {
		if err := ValidateValue(r.NewValue); err != nil {
			var e *Error
			if errors.As(err, &e) {
				e.RecordID = r.RecordID
			}
			return err
		}
	}
	return nil
}

// RecordState is the reconstructed view of one record.
type RecordState struct {
	ID             int64     `json:"id"`
	CurrentValue   string    `json:"current_value"`
	OriginalValue  string    `json:"original_value"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	LastMutationAt time.Time `json:"last_mutation_at,omitzero"`
}

// Diverged reports whether the current value differs from the original.
func (s RecordState) Diverged() bool {
	return s.CurrentValue != s.OriginalValue
}

// State maps record id to its reconstructed state.
// A State is owned by the call that built it.
type State map[int64]RecordState

// VerdictKind classifies a candidate value against reconstructed state.
type VerdictKind string

const (
	VerdictNew              VerdictKind = "NEW"
	VerdictDuplicateLive    VerdictKind = "DUPLICATE_LIVE"
	VerdictDuplicateStale   VerdictKind = "DUPLICATE_STALE"
	VerdictDuplicateDeleted VerdictKind = "DUPLICATE_DELETED"
)

// IsDuplicate reports whether the verdict rejects the candidate.
func (k VerdictKind) IsDuplicate() bool {
	return k != VerdictNew
}

// Verdict is the caller-facing result of a duplicate check.
// RecordID is zero for VerdictNew.
type Verdict struct {
	Kind     VerdictKind `json:"kind"`
	Message  string      `json:"message"`
	RecordID int64       `json:"record_id,omitempty"`
}
