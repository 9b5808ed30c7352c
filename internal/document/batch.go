package document

// Entry records a single node insertion within a change batch.
// Only insertions are recorded: a removal is an insertion into the
// graveyard, and a move between roots is an insertion into the
// destination root.
type Entry struct {
	// Root is the destination root of the insertion.
	Root Root

	// Node is a snapshot of the inserted node at commit time.
	Node Inline

	// Position is the insertion point. Meaningful for RootMain only.
	Position Position
}

// Batch is an atomic group of changes delivered to observers after commit.
type Batch struct {
	// Seq is the commit sequence number, strictly increasing per document.
	Seq uint64

	// Undoable reports whether the batch participates in undo history.
	// Upload bookkeeping batches are never undoable.
	Undoable bool

	// Entries lists the node insertions in operation order.
	Entries []Entry
}

// BatchObserver receives committed change batches.
//
// Observers run synchronously in commit order. They must not mutate the
// document from the callback; follow-up mutation belongs on another
// goroutine, typically via EnqueueChange.
type BatchObserver interface {
	DocumentChanged(batch Batch)
}

// BatchObserverFunc is a function adapter for BatchObserver.
type BatchObserverFunc func(batch Batch)

// DocumentChanged implements the BatchObserver interface.
func (f BatchObserverFunc) DocumentChanged(batch Batch) {
	f(batch)
}
