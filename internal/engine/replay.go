package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/scanlog/internal/model"
)

// Reconstruct replays mutations over records and returns the current state of
// every record.
//
// Mutations are applied in ascending id order regardless of input order.
// Mutations referencing ids missing from records are skipped; they are
// expected after a compaction repoint and are not an error.
//
// Inputs are never modified. Calling Reconstruct twice with the same inputs
// yields equal results.
func Reconstruct(records []model.Record, mutations []model.Mutation) model.State {
	state := make(model.State, len(records))
	for _, r := range records {
		state[r.ID] = Initial(r)
	}

	for _, m := range SortMutations(mutations) {
		s, ok := state[m.RecordID]
		if !ok {
			continue
		}
		state[m.RecordID] = Apply(s, m)
	}

	return state
}

// Initial returns the state of r before any mutation.
func Initial(r model.Record) model.RecordState {
	return model.RecordState{
		ID:            r.ID,
		CurrentValue:  r.OriginalValue,
		OriginalValue: r.OriginalValue,
		Status:        model.StatusActive,
		CreatedAt:     r.CreatedAt,
	}
}

// SortMutations returns mutations ordered by ascending id.
// The input slice is returned as is when already ordered, otherwise a sorted
// copy is returned. Equal ids keep their input order.
func SortMutations(mutations []model.Mutation) []model.Mutation {
	byID := func(a, b model.Mutation) int { return cmp.Compare(a.ID, b.ID) }
	if slices.IsSortedFunc(mutations, byID) {
		return mutations
	}
	sorted := slices.Clone(mutations)
	slices.SortStableFunc(sorted, byID)
	return sorted
}

// SortedIDs returns the record ids of state in ascending order.
func SortedIDs(state model.State) []int64 {
	ids := make([]int64, 0, len(state))
	for id := range state {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
