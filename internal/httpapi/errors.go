package httpapi

import "errors"

// Errors returned by the document hub.
var (
	// ErrHubClosed is returned by Open after Close.
	ErrHubClosed = errors.New("document hub closed")

	// ErrUnknownDocument is returned when a document id resolves to no
	// hosted session.
	ErrUnknownDocument = errors.New("unknown document")
)
