package engine

import (
	"fmt"

	"github.com/roach88/scanlog/internal/model"
)

// Resolve classifies candidate against the reconstructed state.
//
// The candidate must be exactly model.ValueLength characters; otherwise a
// validation error is returned and state is not consulted. Matching is exact
// and case-sensitive on each record's current value. When several records
// carry the value, the smallest id is reported.
//
// Duplicates are verdicts, not errors.
func Resolve(candidate string, state model.State) (model.Verdict, error) {
	if err := model.ValidateValue(candidate); err != nil {
		return model.Verdict{}, err
	}

	match, ok := FindByValue(state, candidate)
	if !ok {
		return model.Verdict{
			Kind:    model.VerdictNew,
			Message: fmt.Sprintf("String %q is new.", candidate),
		}, nil
	}

	created := model.FormatDisplayTime(match.CreatedAt)
	verdict := model.Verdict{RecordID: match.ID}

	switch {
	case match.Status == model.StatusDeleted:
		verdict.Kind = model.VerdictDuplicateDeleted
		verdict.Message = fmt.Sprintf(
			"String %q was previously scanned on %s, but it has been deleted by an admin.",
			candidate, created)
	case match.Status == model.StatusEdited && match.Diverged():
		verdict.Kind = model.VerdictDuplicateStale
		verdict.Message = fmt.Sprintf(
			"String %q is tied to an older record from %s that an admin has since altered (last change on %s).",
			candidate, created, model.FormatDisplayTime(match.LastMutationAt))
	default:
		verdict.Kind = model.VerdictDuplicateLive
		verdict.Message = fmt.Sprintf(
			"String %q already exists. First submitted on %s.",
			candidate, created)
	}

	return verdict, nil
}

// FindByValue returns the record with the smallest id whose current value
// equals value.
func FindByValue(state model.State, value string) (model.RecordState, bool) {
	var (
		match model.RecordState
		found bool
	)
	for id, s := range state {
		if s.CurrentValue != value {
			continue
		}
		if !found || id < match.ID {
			match = s
			found = true
		}
	}
	return match, found
}
