package coordinator

import (
	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/filerepo"
)

// DocumentChanged reconciles the side table against one committed batch.
// It runs synchronously under the document write lock, so it only
// updates coordinator bookkeeping and spawns goroutines; all document
// mutation and event publishing happens elsewhere.
//
// Two passes over the batch entries. Pass one handles insertions into
// live content: a node carrying an upload id becomes that upload's
// anchor, and an idle task starts. Pass two handles insertions into the
// graveyard: an anchor discarded without a live re-insert in the same
// batch means the upload was cancelled. Evaluating all live insertions
// first makes a remove-then-insert relocation indistinguishable from an
// insert-then-remove one.
func (c *Coordinator) DocumentChanged(batch document.Batch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	liveInserted := make(map[string]bool)
	for _, e := range batch.Entries {
		if e.Root != document.RootMain {
			continue
		}
		id, ok := e.Node.Attr(document.AttrUploadID)
		if !ok || id == "" {
			continue
		}
		liveInserted[id] = true
		c.handleLiveInsert(id, e.Node.ID)
	}

	for _, e := range batch.Entries {
		if e.Root != document.RootGraveyard {
			continue
		}
		id, ok := e.Node.Attr(document.AttrUploadID)
		if !ok || id == "" || liveInserted[id] {
			continue
		}
		c.handleDiscard(id)
	}
}

// handleLiveInsert points the side table at the inserted node and starts
// the task if it has not run yet. Caller holds c.mu.
func (c *Coordinator) handleLiveInsert(uploadID string, node document.NodeID) {
	task, ok := c.repo.Task(uploadID)
	if !ok {
		// No task behind the id: a stale attribute riding in on pasted or
		// restored content. Not ours to track.
		return
	}
	if task.Status().Terminal() {
		return
	}

	c.table.point(uploadID, node)

	if c.driving[uploadID] || task.Status() != filerepo.StatusIdle {
		return
	}
	c.driving[uploadID] = true
	c.wg.Add(1)
	go c.drive(task)
}

// handleDiscard aborts the upload behind a discarded anchor. Caller
// holds c.mu.
func (c *Coordinator) handleDiscard(uploadID string) {
	if _, ok := c.table.node(uploadID); !ok {
		return
	}

	task, ok := c.repo.Task(uploadID)
	if !ok {
		c.table.release(uploadID)
		return
	}
	if task.Status().Terminal() {
		// The task concluded and its own cleanup removed the anchor; that
		// removal is what we are observing. The conclusion path owns the
		// release.
		return
	}

	task.Abort()

	if !c.driving[uploadID] {
		// Never started, so no drive goroutine will conclude it. Finish on
		// a fresh goroutine: we are under the document write lock and must
		// not publish from here.
		c.table.release(uploadID)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.finishAborted(task)
		}()
	}
}
