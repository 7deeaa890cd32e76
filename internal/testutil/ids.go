package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDs hands out run IDs "<prefix>-0001", "<prefix>-0002", ...
// It satisfies store.IDGenerator, so stored runs get the same IDs every
// time a test or scenario runs.
type SequentialIDs struct {
	prefix string
	seq    atomic.Int64
}

// NewSequentialIDs returns a generator for prefix. An empty prefix means
// "run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID. Safe for concurrent use.
func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq.Add(1))
}

// Reset starts the sequence over.
func (g *SequentialIDs) Reset() {
	g.seq.Store(0)
}
