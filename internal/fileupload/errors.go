package fileupload

import "errors"

var (
	// ErrNoDocument is returned when attaching without a document.
	ErrNoDocument = errors.New("no document to attach to")

	// ErrNoBus is returned when attaching without an event bus.
	ErrNoBus = errors.New("no event bus")
)
