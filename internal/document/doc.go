// Package document provides the document-model surface the upload
// subsystem is built against, plus an in-memory reference implementation
// used by the shipped hosts and the test suite.
//
// # Model
//
// A document is a list of blocks, each holding a sequence of inline text
// runs. Runs carry string attributes (formatting, hyperlinks, upload
// bookkeeping). Removed runs are not destroyed: they move to the
// document's graveyard, a detached root that mirrors how collaborative
// editors defer garbage collection so concurrent operations can still
// address the nodes.
//
// # Change Batches
//
// All mutation happens inside a change batch:
//
//	err := doc.Change(func(w *document.Writer) error {
//	    _, err := w.InsertInline(pos, document.Inline{Text: "report.pdf"})
//	    return err
//	})
//
// After a batch commits, registered observers receive it. A batch lists
// node insertions only: a removal appears as an insertion into the
// graveyard, and a move between roots appears as a single insertion into
// the destination root. Observers are notified in commit order and must
// not mutate the document from the callback; hand follow-up work to
// another goroutine.
//
// Change produces undoable batches. EnqueueChange produces batches that
// are excluded from the undo history; it is the entry point for
// asynchronous continuations such as upload status bookkeeping.
package document
