package document

import (
	"github.com/google/uuid"
)

// Writer performs mutations within a change batch. It is only valid for
// the duration of the Change or EnqueueChange callback that received it.
type Writer struct {
	doc     *Memory
	entries []Entry
	mutated bool
}

// InsertInline inserts a node at the given position in the main root and
// returns its ID, assigning one if the node has none.
//
// Inserting a node whose ID is currently in the graveyard moves it back
// into the main root. Inserting an ID that is already live fails.
func (w *Writer) InsertInline(pos Position, node Inline) (NodeID, error) {
	m := w.doc
	if pos.Block < 0 || pos.Block >= len(m.blocks) {
		return "", ErrBlockOutOfRange
	}
	block := m.blocks[pos.Block]
	if pos.Run < 0 || pos.Run > len(block.Runs) {
		return "", ErrPositionOutOfRange
	}

	if node.ID == "" {
		node.ID = NodeID(uuid.NewString())
	} else {
		switch w.rootOf(node.ID) {
		case rootLive:
			return "", ErrDuplicateNode
		case rootDetached:
			w.detachFromGraveyard(node.ID)
		}
	}

	node.Attrs = node.Attrs.Clone()
	block.Runs = append(block.Runs, Inline{})
	copy(block.Runs[pos.Run+1:], block.Runs[pos.Run:])
	block.Runs[pos.Run] = node

	w.record(Entry{Root: RootMain, Node: node.Clone(), Position: pos})
	return node.ID, nil
}

// InsertAtSelection inserts a node at the caret described by sel.
//
// A caret in the middle of a plain run splits the run: the prefix keeps
// the original node ID and the suffix becomes a new node with the same
// attributes. A caret inside a hyperlink run does not split it; the
// insertion lands after the run, unless splitLinks is true.
func (w *Writer) InsertAtSelection(sel Selection, node Inline, splitLinks bool) (NodeID, error) {
	m := w.doc
	if sel.Block < 0 || sel.Block >= len(m.blocks) {
		return "", ErrBlockOutOfRange
	}
	block := m.blocks[sel.Block]
	if sel.Run < 0 || sel.Run > len(block.Runs) {
		return "", ErrPositionOutOfRange
	}

	pos := Position{Block: sel.Block, Run: sel.Run}
	if sel.Run < len(block.Runs) {
		run := block.Runs[sel.Run]
		switch {
		case sel.Offset <= 0:
			// Before the run.
		case sel.Offset >= len(run.Text):
			pos.Run = sel.Run + 1
		default:
			_, isLink := run.Attr(AttrLinkHref)
			if isLink && !splitLinks {
				pos.Run = sel.Run + 1
				break
			}
			if err := w.splitRun(sel.Block, sel.Run, sel.Offset); err != nil {
				return "", err
			}
			pos.Run = sel.Run + 1
		}
	}

	return w.InsertInline(pos, node)
}

// splitRun splits the run at the given text offset. The prefix keeps the
// node ID; the suffix is inserted as a new node with cloned attributes.
func (w *Writer) splitRun(blockIdx, runIdx, offset int) error {
	block := w.doc.blocks[blockIdx]
	run := &block.Runs[runIdx]

	suffix := Inline{
		ID:    NodeID(uuid.NewString()),
		Text:  run.Text[offset:],
		Attrs: run.Attrs.Clone(),
	}
	run.Text = run.Text[:offset]

	pos := Position{Block: blockIdx, Run: runIdx + 1}
	block.Runs = append(block.Runs, Inline{})
	copy(block.Runs[pos.Run+1:], block.Runs[pos.Run:])
	block.Runs[pos.Run] = suffix

	w.record(Entry{Root: RootMain, Node: suffix.Clone(), Position: pos})
	return nil
}

// Remove moves a live node to the graveyard.
func (w *Writer) Remove(id NodeID) error {
	m := w.doc
	for _, block := range m.blocks {
		for i := range block.Runs {
			if block.Runs[i].ID != id {
				continue
			}
			node := block.Runs[i]
			block.Runs = append(block.Runs[:i], block.Runs[i+1:]...)
			m.graveyard = append(m.graveyard, node)
			w.record(Entry{Root: RootGraveyard, Node: node.Clone()})
			return nil
		}
	}
	return ErrNodeNotFound
}

// Replace swaps a live node for a new one at the same position. The old
// node moves to the graveyard; the new node gets a fresh ID unless one is
// provided. The live insertion is recorded before the graveyard insertion.
func (w *Writer) Replace(id NodeID, node Inline) (NodeID, error) {
	m := w.doc
	for bi, block := range m.blocks {
		for ri := range block.Runs {
			if block.Runs[ri].ID != id {
				continue
			}
			old := block.Runs[ri]
			if node.ID == "" {
				node.ID = NodeID(uuid.NewString())
			}
			node.Attrs = node.Attrs.Clone()
			block.Runs[ri] = node
			m.graveyard = append(m.graveyard, old)

			w.record(Entry{Root: RootMain, Node: node.Clone(), Position: Position{Block: bi, Run: ri}})
			w.record(Entry{Root: RootGraveyard, Node: old.Clone()})
			return node.ID, nil
		}
	}
	return "", ErrNodeNotFound
}

// SetAttr sets an attribute on a node in either root.
func (w *Writer) SetAttr(id NodeID, key, value string) error {
	n := w.doc.findLocked(id)
	if n == nil {
		return ErrNodeNotFound
	}
	if n.Attrs == nil {
		n.Attrs = make(Attrs)
	}
	n.Attrs[key] = value
	w.mutated = true
	return nil
}

// RemoveAttr removes an attribute from a node in either root.
// Removing an absent attribute is a no-op.
func (w *Writer) RemoveAttr(id NodeID, key string) error {
	n := w.doc.findLocked(id)
	if n == nil {
		return ErrNodeNotFound
	}
	if n.Attrs != nil {
		delete(n.Attrs, key)
	}
	w.mutated = true
	return nil
}

// SetText replaces the text of a node in either root.
func (w *Writer) SetText(id NodeID, text string) error {
	n := w.doc.findLocked(id)
	if n == nil {
		return ErrNodeNotFound
	}
	n.Text = text
	w.mutated = true
	return nil
}

// InsertBlock inserts an empty block at the given index and returns its ID.
func (w *Writer) InsertBlock(at int) (string, error) {
	m := w.doc
	if at < 0 || at > len(m.blocks) {
		return "", ErrBlockOutOfRange
	}
	block := &Block{ID: uuid.NewString()}
	m.blocks = append(m.blocks, nil)
	copy(m.blocks[at+1:], m.blocks[at:])
	m.blocks[at] = block
	w.mutated = true
	return block.ID, nil
}

// RemoveBlock removes a block, moving every run it holds to the graveyard.
func (w *Writer) RemoveBlock(at int) error {
	m := w.doc
	if at < 0 || at >= len(m.blocks) {
		return ErrBlockOutOfRange
	}
	block := m.blocks[at]
	for _, run := range block.Runs {
		m.graveyard = append(m.graveyard, run)
		w.record(Entry{Root: RootGraveyard, Node: run.Clone()})
	}
	m.blocks = append(m.blocks[:at], m.blocks[at+1:]...)
	w.mutated = true
	return nil
}

// SetSelection moves the caret as part of the batch.
func (w *Writer) SetSelection(sel Selection) error {
	if err := w.doc.setSelectionLocked(sel); err != nil {
		return err
	}
	w.mutated = true
	return nil
}

// Selection returns the current selection as seen inside the batch.
func (w *Writer) Selection() Selection {
	sel := w.doc.selection
	sel.Attrs = sel.Attrs.Clone()
	return sel
}

// RunIndex returns the run index of a node within a block, as seen
// inside the batch. Commands use it to place the caret relative to a
// node they just inserted.
func (w *Writer) RunIndex(blockIdx int, id NodeID) (int, bool) {
	if blockIdx < 0 || blockIdx >= len(w.doc.blocks) {
		return 0, false
	}
	for i, run := range w.doc.blocks[blockIdx].Runs {
		if run.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (w *Writer) record(e Entry) {
	w.entries = append(w.entries, e)
	w.mutated = true
}

// rootOf reports where a node ID currently lives.
const (
	rootAbsent = iota
	rootLive
	rootDetached
)

func (w *Writer) rootOf(id NodeID) int {
	m := w.doc
	for _, b := range m.blocks {
		for i := range b.Runs {
			if b.Runs[i].ID == id {
				return rootLive
			}
		}
	}
	for i := range m.graveyard {
		if m.graveyard[i].ID == id {
			return rootDetached
		}
	}
	return rootAbsent
}

func (w *Writer) detachFromGraveyard(id NodeID) {
	m := w.doc
	for i := range m.graveyard {
		if m.graveyard[i].ID == id {
			m.graveyard = append(m.graveyard[:i], m.graveyard[i+1:]...)
			return
		}
	}
}
