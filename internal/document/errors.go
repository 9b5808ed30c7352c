package document

import "errors"

// Errors returned by document operations.
var (
	// ErrNodeNotFound is returned when a node ID resolves to no node in any root.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when inserting a node whose ID is already live.
	ErrDuplicateNode = errors.New("node already in main root")

	// ErrPositionOutOfRange is returned for insertion points outside the document.
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrBlockOutOfRange is returned for block indexes outside the document.
	ErrBlockOutOfRange = errors.New("block index out of range")

	// ErrNothingToUndo is returned by Undo when the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
)
