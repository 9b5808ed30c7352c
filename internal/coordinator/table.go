package coordinator

import "github.com/dshills/filestorm/internal/document"

// table maps upload ids to their current anchor node. Entries are weak,
// non-owning back-references: node identity is volatile and the entry is
// re-pointed explicitly whenever a different anchor appears bearing the
// same id. At most one entry exists per upload id.
//
// Not safe for concurrent use; the owning Coordinator guards it.
type table struct {
	entries map[string]document.NodeID
}

func newTable() *table {
	return &table{entries: make(map[string]document.NodeID)}
}

// point inserts or re-points the entry for an upload id.
func (t *table) point(uploadID string, node document.NodeID) {
	t.entries[uploadID] = node
}

// node returns the current anchor for an upload id.
func (t *table) node(uploadID string) (document.NodeID, bool) {
	n, ok := t.entries[uploadID]
	return n, ok
}

// release removes the entry and reports whether one existed.
func (t *table) release(uploadID string) bool {
	if _, ok := t.entries[uploadID]; !ok {
		return false
	}
	delete(t.entries, uploadID)
	return true
}

// ids returns the tracked upload ids.
func (t *table) ids() []string {
	out := make([]string, 0, len(t.entries))
	for id := range t.entries {
		out = append(out, id)
	}
	return out
}

func (t *table) len() int {
	return len(t.entries)
}
