package compactor

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/scanlog/internal/model"
)

// MergeGroup describes one collision merge.
type MergeGroup struct {
	Value     string  `json:"value"`
	Keeper    int64   `json:"keeper"`
	Removed   []int64 `json:"removed"`
	Repointed []int64 `json:"repointed"`
}

// Report summarizes a compaction plan. All id lists are ascending.
type Report struct {
	Merges          []MergeGroup `json:"merges"`
	Pruned          []int64      `json:"pruned"`
	Orphans         []int64      `json:"orphans"`
	RecordsBefore   int          `json:"records_before"`
	RecordsAfter    int          `json:"records_after"`
	MutationsBefore int          `json:"mutations_before"`
	MutationsAfter  int          `json:"mutations_after"`
}

// Changed reports whether applying the plan would write anything.
func (r Report) Changed() bool {
	return len(r.Merges) > 0 || len(r.Pruned) > 0
}

// CanonicalMap returns r in the shape accepted by model.MarshalCanonical.
func (r Report) CanonicalMap() map[string]any {
	merges := make([]any, len(r.Merges))
	for i, g := range r.Merges {
		merges[i] = map[string]any{
			"value":     g.Value,
			"keeper":    g.Keeper,
			"removed":   g.Removed,
			"repointed": g.Repointed,
		}
	}
	return map[string]any{
		"merges":           merges,
		"pruned":           r.Pruned,
		"orphans":          r.Orphans,
		"records_before":   r.RecordsBefore,
		"records_after":    r.RecordsAfter,
		"mutations_before": r.MutationsBefore,
		"mutations_after":  r.MutationsAfter,
	}
}

// CanonicalJSON returns the canonical JSON encoding of r.
func (r Report) CanonicalJSON() ([]byte, error) {
	return model.MarshalCanonical(r.CanonicalMap())
}

// Digest returns the domain-separated hash of r's canonical JSON.
// Equal plans always have equal digests.
func (r Report) Digest() (string, error) {
	return model.Digest(model.DomainCompactionReport, r.CanonicalMap())
}

// WriteText renders r for humans.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "records:   %d -> %d\n", r.RecordsBefore, r.RecordsAfter)
	fmt.Fprintf(&b, "mutations: %d -> %d\n", r.MutationsBefore, r.MutationsAfter)

	if !r.Changed() {
		b.WriteString("nothing to compact\n")
	}
	for _, g := range r.Merges {
		fmt.Fprintf(&b, "merge %q: keep record %d, remove %s, repoint %d mutation(s)\n",
			g.Value, g.Keeper, joinIDs(g.Removed), len(g.Repointed))
	}
	if len(r.Pruned) > 0 {
		fmt.Fprintf(&b, "pruned redundant mutations: %s\n", joinIDs(r.Pruned))
	}
	if len(r.Orphans) > 0 {
		fmt.Fprintf(&b, "orphan mutations (left untouched): %s\n", joinIDs(r.Orphans))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
