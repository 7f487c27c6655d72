package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator returns "<prefix>-0001", "<prefix>-0002", ...
//
// It replaces random run ids in tests so backup file names and audit rows are
// predictable.
//
// Thread-safety: safe for concurrent use.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator. An empty prefix becomes "test-run".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
