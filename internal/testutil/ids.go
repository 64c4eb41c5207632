package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator hands out client ids "<prefix>-0001", "<prefix>-0002", ...
//
// Unlike event.FixedGenerator it never runs out, which suits tests that
// append an unknown number of events but still want byte-identical logs.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "client".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "client"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate implements event.IDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Count returns how many ids have been handed out.
func (g *SequenceGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
