package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes scanlog errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates a malformed value (wrong length).
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeDuplicateValue indicates a value already stored as an original.
	ErrCodeDuplicateValue ErrorCode = "DUPLICATE_VALUE"

	// ErrCodeUnknownRecord indicates a mutation against a missing record.
	ErrCodeUnknownRecord ErrorCode = "UNKNOWN_RECORD"

	// ErrCodeInvalidMutationKind indicates a kind outside EDIT/DELETE/RESTORE.
	ErrCodeInvalidMutationKind ErrorCode = "INVALID_MUTATION_KIND"

	// ErrCodeCompactionFailure indicates a compaction run was rolled back.
	ErrCodeCompactionFailure ErrorCode = "COMPACTION_FAILURE"

	// ErrCodeStorage indicates an unrecoverable storage failure.
	ErrCodeStorage ErrorCode = "STORAGE"
)

// Error is the structured error returned by the core and the store.
// RecordID, MutationID and Value are set when known so failures can be
// audited by hand.
type Error struct {
	Code       ErrorCode
	Message    string
	RecordID   int64
	MutationID int64
	Value      string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RecordID != 0 {
		msg += fmt.Sprintf(" (record=%d)", e.RecordID)
	}
	if e.MutationID != 0 {
		msg += fmt.Sprintf(" (mutation=%d)", e.MutationID)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (value=%q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewDuplicateValueError reports value as already present in the record store.
func NewDuplicateValueError(value string, err error) *Error {
	return &Error{
		Code:    ErrCodeDuplicateValue,
		Message: "value already exists as an original record",
		Value:   value,
		Err:     err,
	}
}

// NewUnknownRecordError reports a reference to a missing record.
func NewUnknownRecordError(recordID int64) *Error {
	return &Error{
		Code:     ErrCodeUnknownRecord,
		Message:  "record does not exist",
		RecordID: recordID,
	}
}

// NewStorageError wraps an unrecoverable storage failure.
func NewStorageError(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeStorage,
		Message: op,
		Err:     err,
	}
}

// NewCompactionError wraps the cause of a rolled back compaction run.
func NewCompactionError(message string, err error) *Error {
	return &Error{
		Code:    ErrCodeCompactionFailure,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsDuplicateValue reports whether err is a duplicate original value.
func IsDuplicateValue(err error) bool { return CodeOf(err) == ErrCodeDuplicateValue }

// IsUnknownRecord reports whether err references a missing record.
func IsUnknownRecord(err error) bool { return CodeOf(err) == ErrCodeUnknownRecord }

// IsInvalidMutationKind reports whether err is an unsupported mutation kind.
func IsInvalidMutationKind(err error) bool { return CodeOf(err) == ErrCodeInvalidMutationKind }

// IsCompactionFailure reports whether err is a rolled back compaction.
func IsCompactionFailure(err error) bool { return CodeOf(err) == ErrCodeCompactionFailure }

// IsStorage reports whether err is a generic storage failure.
func IsStorage(err error) bool { return CodeOf(err) == ErrCodeStorage }
