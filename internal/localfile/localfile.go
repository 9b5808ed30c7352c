// Package localfile materializes embedded file sources into byte blobs
// with a resolved MIME type and a usable file name. Sources are data URIs,
// fetchable URLs, or paths on a filesystem.
package localfile

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/dshills/filestorm/internal/mimetype"
)

// File is a materialized source ready for upload.
type File struct {
	// Bytes is the raw file content.
	Bytes []byte

	// Name is the file name, synthesized from the MIME subtype when the
	// source carries no better one.
	Name string

	// MIME is the resolved media type, without parameters.
	MIME string
}

// Size returns the content length in bytes.
func (f File) Size() int {
	return len(f.Bytes)
}

// Fetcher retrieves file sources. The zero configuration uses a default
// HTTP client and the host OS filesystem.
type Fetcher struct {
	client *http.Client
	fs     afero.Fs
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for http and https sources.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithFilesystem sets the filesystem used for plain-path sources.
func WithFilesystem(fs afero.Fs) Option {
	return func(f *Fetcher) {
		if fs != nil {
			f.fs = fs
		}
	}
}

// NewFetcher creates a fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch materializes the source behind uri.
//
// data URIs decode inline and take their MIME type from the URI prefix.
// http and https URLs are fetched; the MIME type comes from the response
// Content-Type, falling back to the URL path extension. Anything else is
// treated as a path on the configured filesystem, with the MIME type
// resolved from the extension. A source whose MIME type cannot be
// resolved fails with ErrMimeUnresolved; retrieval failures return a
// *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (File, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		return fetchDataURI(uri)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return f.fetchHTTP(ctx, uri)
	default:
		if i := strings.Index(uri, "://"); i >= 0 && !strings.HasPrefix(uri, "file://") {
			return File{}, &FetchError{URI: uri, Err: fmt.Errorf("unsupported scheme %q", uri[:i])}
		}
		return f.fetchPath(strings.TrimPrefix(uri, "file://"))
	}
}

// fetchDataURI decodes data:[<mediatype>][;base64],<data>.
func fetchDataURI(uri string) (File, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return File{}, &FetchError{URI: uri, Err: fmt.Errorf("malformed data URI")}
	}

	var (
		mime    string
		base64d bool
	)
	for i, part := range strings.Split(meta, ";") {
		switch {
		case i == 0:
			mime = strings.TrimSpace(part)
		case strings.TrimSpace(part) == "base64":
			base64d = true
		}
	}
	if mime == "" {
		return File{}, ErrMimeUnresolved
	}

	var (
		raw []byte
		err error
	)
	if base64d {
		raw, err = base64.StdEncoding.DecodeString(payload)
	} else {
		var s string
		s, err = url.PathUnescape(payload)
		raw = []byte(s)
	}
	if err != nil {
		return File{}, &FetchError{URI: uri, Err: err}
	}

	return File{Bytes: raw, Name: synthesizeName(mime), MIME: mime}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, uri string) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return File{}, &FetchError{URI: uri, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return File{}, &FetchError{URI: uri, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return File{}, &FetchError{URI: uri, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return File{}, &FetchError{URI: uri, Err: err}
	}

	base := ""
	if u, perr := url.Parse(uri); perr == nil {
		base = path.Base(u.Path)
		if base == "." || base == "/" {
			base = ""
		}
	}

	mime := stripParams(resp.Header.Get("Content-Type"))
	if mime == "" {
		mime, _ = mimetype.ByExtension(base)
	}
	if mime == "" {
		return File{}, ErrMimeUnresolved
	}

	name := base
	if name == "" {
		name = synthesizeName(mime)
	}
	return File{Bytes: raw, Name: name, MIME: mime}, nil
}

func (f *Fetcher) fetchPath(p string) (File, error) {
	raw, err := afero.ReadFile(f.fs, p)
	if err != nil {
		return File{}, &FetchError{URI: p, Err: err}
	}

	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	mime, ok := mimetype.ByExtension(base)
	if !ok {
		return File{}, ErrMimeUnresolved
	}
	return File{Bytes: raw, Name: base, MIME: mime}, nil
}

// stripParams drops media-type parameters such as charset.
func stripParams(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// synthesizeName builds file.<subtype> for sources with no usable name.
func synthesizeName(mime string) string {
	sub := mimetype.Subtype(mime)
	if sub == "" {
		return "file"
	}
	return "file." + sub
}
