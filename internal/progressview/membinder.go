package progressview

import (
	"sync"

	"github.com/dshills/filestorm/internal/document"
)

// MemoryBinder records decorations in memory. It backs tests and hosts
// that poll view state instead of receiving pushes.
type MemoryBinder struct {
	mu      sync.Mutex
	decos   map[document.NodeID]Decoration
	applies map[document.NodeID]int
	clears  map[document.NodeID]int
}

// NewMemoryBinder creates an empty binder.
func NewMemoryBinder() *MemoryBinder {
	return &MemoryBinder{
		decos:   make(map[document.NodeID]Decoration),
		applies: make(map[document.NodeID]int),
		clears:  make(map[document.NodeID]int),
	}
}

// Apply implements the Binder interface.
func (b *MemoryBinder) Apply(node document.NodeID, d Decoration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decos[node] = d
	b.applies[node]++
}

// Clear implements the Binder interface.
func (b *MemoryBinder) Clear(node document.NodeID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.decos, node)
	b.clears[node]++
}

// Decoration returns the node's current decoration.
func (b *MemoryBinder) Decoration(node document.NodeID) (Decoration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.decos[node]
	return d, ok
}

// Applies returns how many times the node's decoration was set.
func (b *MemoryBinder) Applies(node document.NodeID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applies[node]
}

// Clears returns how many times the node's decoration was removed.
func (b *MemoryBinder) Clears(node document.NodeID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clears[node]
}

// Decorated returns the number of nodes currently decorated.
func (b *MemoryBinder) Decorated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.decos)
}
