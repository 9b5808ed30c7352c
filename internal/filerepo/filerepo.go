// Package filerepo manages upload tasks: handles that carry one file
// through read, upload, and teardown against a pluggable upload adapter.
package filerepo

import (
	"context"
	"strings"

	"github.com/dshills/filestorm/internal/localfile"
	"github.com/dshills/filestorm/internal/mimetype"
)

// Source describes one file to upload.
type Source struct {
	// URI locates the file data: a data URI, an http(s) URL, or a
	// filesystem path.
	URI string

	// Name optionally overrides the file name derived from the URI.
	Name string

	// MIME optionally declares the media type up front, as a file picker
	// does. Left empty it is resolved during Read.
	MIME string
}

// ResolveMIME determines the source's media type without fetching it:
// the declared type if present, the data-URI prefix, or the extension of
// the name or URI path.
func (s Source) ResolveMIME() (string, bool) {
	if s.MIME != "" {
		return strings.ToLower(s.MIME), true
	}
	if strings.HasPrefix(s.URI, "data:") {
		meta, _, ok := strings.Cut(strings.TrimPrefix(s.URI, "data:"), ",")
		if !ok {
			return "", false
		}
		mt := strings.TrimSpace(strings.Split(meta, ";")[0])
		if mt == "" {
			return "", false
		}
		return strings.ToLower(mt), true
	}
	if s.Name != "" {
		if mt, ok := mimetype.ByExtension(s.Name); ok {
			return mt, true
		}
	}
	return mimetype.ByExtension(strings.SplitN(s.URI, "?", 2)[0])
}

// Response is the adapter's answer to a finished upload.
type Response struct {
	// Data holds the attributes of the stored file as reported by the
	// adapter. The "url" key is the resolved resource location.
	Data map[string]string
}

// URL returns the resolved resource location, if any.
func (r Response) URL() string {
	return r.Data["url"]
}

// Get returns a response attribute.
func (r Response) Get(key string) string {
	return r.Data[key]
}

// Adapter sends a materialized file to storage. Implementations report
// progress through the callback with values in [0,100] and return either
// a response or a declared upload failure. Cancellation arrives through
// the context.
type Adapter interface {
	Upload(ctx context.Context, f localfile.File, progress func(pct int)) (Response, error)
}

// AdapterFunc is a function adapter for Adapter.
type AdapterFunc func(ctx context.Context, f localfile.File, progress func(pct int)) (Response, error)

// Upload implements the Adapter interface.
func (fn AdapterFunc) Upload(ctx context.Context, f localfile.File, progress func(pct int)) (Response, error) {
	return fn(ctx, f, progress)
}
