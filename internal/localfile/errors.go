package localfile

import (
	"errors"
	"fmt"
)

// ErrMimeUnresolved is returned when no MIME type can be determined for a
// source: the response carried no usable content type and the URI prefix
// yielded none.
var ErrMimeUnresolved = errors.New("mime type unresolved")

// FetchError reports a failure to retrieve the bytes of a source. It is
// not retryable; callers drop the affected file.
type FetchError struct {
	// URI is the source that failed.
	URI string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URI, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
