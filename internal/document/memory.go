package document

import (
	"sync"

	"github.com/google/uuid"
)

// Memory is the in-memory reference document. All methods are thread-safe.
//
// Mutation is serialized: batches commit one at a time and observers see
// them in commit order. Readers never block writers for longer than a
// state copy.
type Memory struct {
	id string

	// writeMu serializes batch application and observer notification.
	writeMu sync.Mutex

	// mu guards the document state below.
	mu        sync.RWMutex
	blocks    []*Block
	graveyard []Inline
	selection Selection
	seq       uint64
	undo      []snapshot

	obsMu     sync.RWMutex
	observers map[int]BatchObserver
	nextObs   int
}

// snapshot is a deep copy of document state, used for batch rollback and
// the undo stack.
type snapshot struct {
	blocks    []*Block
	graveyard []Inline
	selection Selection
}

// MemoryOption configures a Memory document.
type MemoryOption func(*Memory)

// WithDocumentID sets the document identifier.
func WithDocumentID(id string) MemoryOption {
	return func(m *Memory) {
		if id != "" {
			m.id = id
		}
	}
}

// WithInitialText seeds the document with a single block holding one
// plain text run.
func WithInitialText(text string) MemoryOption {
	return func(m *Memory) {
		m.blocks = []*Block{{
			ID:   uuid.NewString(),
			Runs: []Inline{{ID: NodeID(uuid.NewString()), Text: text}},
		}}
	}
}

// NewMemory creates an empty document with a single empty block.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		id:        uuid.NewString(),
		blocks:    []*Block{{ID: uuid.NewString()}},
		observers: make(map[int]BatchObserver),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the document identifier.
func (m *Memory) ID() string {
	return m.id
}

// Seq returns the sequence number of the last committed batch.
func (m *Memory) Seq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

// Node returns a snapshot of the node with the given ID, searching both
// the main root and the graveyard.
func (m *Memory) Node(id NodeID) (Inline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n := m.findLocked(id); n != nil {
		return n.Clone(), true
	}
	return Inline{}, false
}

// NodeRoot reports which root currently holds the node.
func (m *Memory) NodeRoot(id NodeID) (Root, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.blocks {
		for i := range b.Runs {
			if b.Runs[i].ID == id {
				return RootMain, true
			}
		}
	}
	for i := range m.graveyard {
		if m.graveyard[i].ID == id {
			return RootGraveyard, true
		}
	}
	return RootMain, false
}

// Blocks returns a deep copy of the main root.
func (m *Memory) Blocks() []Block {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Block, len(m.blocks))
	for i, b := range m.blocks {
		out[i] = cloneBlock(b)
	}
	return out
}

// Graveyard returns a copy of the detached nodes in insertion order.
func (m *Memory) Graveyard() []Inline {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Inline, len(m.graveyard))
	for i := range m.graveyard {
		out[i] = m.graveyard[i].Clone()
	}
	return out
}

// Text returns the document text, blocks joined with newlines.
func (m *Memory) Text() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out string
	for i, b := range m.blocks {
		if i > 0 {
			out += "\n"
		}
		out += b.Text()
	}
	return out
}

// Selection returns the current selection.
func (m *Memory) Selection() Selection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sel := m.selection
	sel.Attrs = sel.Attrs.Clone()
	return sel
}

// SetSelection moves the caret. Selection changes are not batches and are
// not observable.
func (m *Memory) SetSelection(sel Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setSelectionLocked(sel)
}

func (m *Memory) setSelectionLocked(sel Selection) error {
	if sel.Block < 0 || sel.Block >= len(m.blocks) {
		return ErrBlockOutOfRange
	}
	runs := m.blocks[sel.Block].Runs
	if sel.Run < 0 || sel.Run > len(runs) {
		return ErrPositionOutOfRange
	}
	if sel.Run < len(runs) {
		if sel.Offset < 0 || sel.Offset > len(runs[sel.Run].Text) {
			return ErrPositionOutOfRange
		}
	} else if sel.Offset != 0 {
		return ErrPositionOutOfRange
	}
	sel.Attrs = sel.Attrs.Clone()
	m.selection = sel
	return nil
}

// Observe registers a batch observer and returns a function that removes it.
func (m *Memory) Observe(obs BatchObserver) func() {
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = obs
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// Change applies fn as one atomic, undoable batch. If fn returns an
// error the document is left unchanged.
func (m *Memory) Change(fn func(w *Writer) error) error {
	return m.apply(fn, true)
}

// EnqueueChange applies fn as one atomic batch excluded from the undo
// history. It blocks until the writer lock is available and is the entry
// point for asynchronous continuations such as upload bookkeeping.
func (m *Memory) EnqueueChange(fn func(w *Writer) error) error {
	return m.apply(fn, false)
}

func (m *Memory) apply(fn func(w *Writer) error, undoable bool) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	snap := m.snapshotLocked()
	w := &Writer{doc: m}
	if err := fn(w); err != nil {
		m.restoreLocked(snap)
		m.mu.Unlock()
		return err
	}
	if !w.mutated {
		m.mu.Unlock()
		return nil
	}
	m.seq++
	batch := Batch{Seq: m.seq, Undoable: undoable, Entries: w.entries}
	if undoable {
		m.undo = append(m.undo, snap)
	}
	m.mu.Unlock()

	m.notify(batch)
	return nil
}

// Undo reverts the most recent undoable batch. The revert itself commits
// as a non-undoable batch whose entries describe every node that moved
// between roots, so observers can reconcile.
func (m *Memory) Undo() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if len(m.undo) == 0 {
		m.mu.Unlock()
		return ErrNothingToUndo
	}
	snap := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]

	before := m.nodeIndexLocked()
	m.restoreLocked(snap)
	entries := m.diffLocked(before)

	m.seq++
	batch := Batch{Seq: m.seq, Undoable: false, Entries: entries}
	m.mu.Unlock()

	m.notify(batch)
	return nil
}

// CanUndo reports whether the undo stack is non-empty.
func (m *Memory) CanUndo() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.undo) > 0
}

// nodeState is a node's root and contents at a point in time.
type nodeState struct {
	root Root
	node Inline
}

// nodeIndexLocked returns the root and contents of every node in the document.
func (m *Memory) nodeIndexLocked() map[NodeID]nodeState {
	idx := make(map[NodeID]nodeState)
	for _, b := range m.blocks {
		for i := range b.Runs {
			idx[b.Runs[i].ID] = nodeState{root: RootMain, node: b.Runs[i].Clone()}
		}
	}
	for i := range m.graveyard {
		idx[m.graveyard[i].ID] = nodeState{root: RootGraveyard, node: m.graveyard[i].Clone()}
	}
	return idx
}

// diffLocked synthesizes insertion entries after a snapshot restore.
// Nodes whose root changed get an entry for their new root. Nodes that
// existed before the restore but not after (they were created by the
// reverted batch) move to the graveyard rather than being destroyed.
func (m *Memory) diffLocked(before map[NodeID]nodeState) []Entry {
	var entries []Entry
	after := make(map[NodeID]bool, len(before))

	for bi, b := range m.blocks {
		for ri := range b.Runs {
			n := b.Runs[ri]
			after[n.ID] = true
			if prev, ok := before[n.ID]; !ok || prev.root != RootMain {
				entries = append(entries, Entry{
					Root:     RootMain,
					Node:     n.Clone(),
					Position: Position{Block: bi, Run: ri},
				})
			}
		}
	}
	for i := range m.graveyard {
		n := m.graveyard[i]
		after[n.ID] = true
		if prev, ok := before[n.ID]; !ok || prev.root != RootGraveyard {
			entries = append(entries, Entry{Root: RootGraveyard, Node: n.Clone()})
		}
	}

	for _, prev := range before {
		if after[prev.node.ID] {
			continue
		}
		m.graveyard = append(m.graveyard, prev.node.Clone())
		entries = append(entries, Entry{Root: RootGraveyard, Node: prev.node.Clone()})
	}
	return entries
}

// findLocked returns a pointer to the node with the given ID, or nil.
func (m *Memory) findLocked(id NodeID) *Inline {
	for _, b := range m.blocks {
		for i := range b.Runs {
			if b.Runs[i].ID == id {
				return &b.Runs[i]
			}
		}
	}
	for i := range m.graveyard {
		if m.graveyard[i].ID == id {
			return &m.graveyard[i]
		}
	}
	return nil
}

func (m *Memory) snapshotLocked() snapshot {
	s := snapshot{
		blocks:    make([]*Block, len(m.blocks)),
		graveyard: make([]Inline, len(m.graveyard)),
		selection: m.selection,
	}
	for i, b := range m.blocks {
		cloned := cloneBlock(b)
		s.blocks[i] = &cloned
	}
	for i := range m.graveyard {
		s.graveyard[i] = m.graveyard[i].Clone()
	}
	s.selection.Attrs = s.selection.Attrs.Clone()
	return s
}

func (m *Memory) restoreLocked(s snapshot) {
	m.blocks = s.blocks
	m.graveyard = s.graveyard
	m.selection = s.selection
}

func (m *Memory) notify(batch Batch) {
	m.obsMu.RLock()
	obs := make([]BatchObserver, 0, len(m.observers))
	for _, o := range m.observers {
		obs = append(obs, o)
	}
	m.obsMu.RUnlock()

	for _, o := range obs {
		o.DocumentChanged(batch)
	}
}

func cloneBlock(b *Block) Block {
	c := Block{ID: b.ID, Runs: make([]Inline, len(b.Runs))}
	for i := range b.Runs {
		c.Runs[i] = b.Runs[i].Clone()
	}
	return c
}
