package compactor

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/scanlog/internal/engine"
	"github.com/roach88/scanlog/internal/model"
)

// Result is the outcome of Plan. Records and Mutations are ordered by id and
// never alias the inputs.
type Result struct {
	Records   []model.Record
	Mutations []model.Mutation
	Report    Report
}

// Plan computes one compaction pass over records and mutations.
//
// Returns an error only when the input is malformed (duplicate record or
// mutation ids); the error is a COMPACTION_FAILURE.
func Plan(records []model.Record, mutations []model.Mutation) (Result, error) {
	if err := checkUniqueIDs(records, mutations); err != nil {
		return Result{}, model.NewCompactionError("plan compaction", err)
	}

	report := Report{
		RecordsBefore:   len(records),
		MutationsBefore: len(mutations),
	}

	known := make(map[int64]model.Record, len(records))
	for _, r := range records {
		known[r.ID] = r
	}

	// Step 1: collision merge.
	state := engine.Reconstruct(records, mutations)
	repoint, merges := mergeGroups(state)

	ordered := slices.Clone(engine.SortMutations(mutations))
	for i := range ordered {
		m := &ordered[i]
		if _, ok := known[m.RecordID]; !ok {
			report.Orphans = append(report.Orphans, m.ID)
			continue
		}
		if keeper, ok := repoint[m.RecordID]; ok {
			merges[keeper].Repointed = append(merges[keeper].Repointed, m.ID)
			m.RecordID = keeper
		}
	}

	// Step 2: redundancy sweep over the repointed log.
	deleted := make(map[int64]bool, len(records))
	for _, r := range records {
		if _, removed := repoint[r.ID]; !removed {
			deleted[r.ID] = false
		}
	}
	redundant := make(map[int64]bool)
	for _, m := range ordered {
		flag, ok := deleted[m.RecordID]
		if !ok {
			continue
		}
		if isRedundant(flag, m.Kind) {
			redundant[m.ID] = true
			continue
		}
		switch m.Kind {
		case model.KindDelete:
			deleted[m.RecordID] = true
		case model.KindRestore, model.KindEdit:
			deleted[m.RecordID] = false
		}
	}

	result := Result{
		Records:   make([]model.Record, 0, len(deleted)),
		Mutations: make([]model.Mutation, 0, len(ordered)-len(redundant)),
	}
	for _, r := range records {
		if _, ok := deleted[r.ID]; ok {
			result.Records = append(result.Records, r)
		}
	}
	slices.SortFunc(result.Records, func(a, b model.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
	for _, m := range ordered {
		if redundant[m.ID] {
			report.Pruned = append(report.Pruned, m.ID)
			continue
		}
		result.Mutations = append(result.Mutations, m)
	}

	for _, id := range sortedKeys(merges) {
		report.Merges = append(report.Merges, *merges[id])
	}
	report.RecordsAfter = len(result.Records)
	report.MutationsAfter = len(result.Mutations)
	result.Report = report
	return result, nil
}

// isRedundant reports whether an event of kind leaves the liveness flag as it
// is. Only the flag is tracked: a RESTORE on a live record is redundant even
// when replay would move it from EDITED to ACTIVE. EDIT is never redundant and
// clears the flag, since replay un-deletes an edited record.
func isRedundant(deleted bool, kind model.MutationKind) bool {
	switch kind {
	case model.KindDelete:
		return deleted
	case model.KindRestore:
		return !deleted
	default:
		return false
	}
}

// mergeGroups groups records by current value. It returns the removed id to
// keeper mapping and one MergeGroup per keeper.
func mergeGroups(state model.State) (map[int64]int64, map[int64]*MergeGroup) {
	byValue := make(map[string][]int64)
	for _, id := range engine.SortedIDs(state) {
		v := state[id].CurrentValue
		byValue[v] = append(byValue[v], id)
	}

	repoint := make(map[int64]int64)
	merges := make(map[int64]*MergeGroup)
	for value, ids := range byValue {
		if len(ids) < 2 {
			continue
		}
		keeper := ids[0]
		merges[keeper] = &MergeGroup{
			Value:   value,
			Keeper:  keeper,
			Removed: slices.Clone(ids[1:]),
		}
		for _, id := range ids[1:] {
			repoint[id] = keeper
		}
	}
	return repoint, merges
}

func checkUniqueIDs(records []model.Record, mutations []model.Mutation) error {
	seen := make(map[int64]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			return fmt.Errorf("duplicate record id %d", r.ID)
		}
		seen[r.ID] = true
	}
	clear(seen)
	for _, m := range mutations {
		if seen[m.ID] {
			return fmt.Errorf("duplicate mutation id %d", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
