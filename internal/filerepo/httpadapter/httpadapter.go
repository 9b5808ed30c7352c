// Package httpadapter uploads files with a multipart POST to a configured
// endpoint. The endpoint answers JSON: {"url": "..."} on success or
// {"error": {"message": "..."}} for a declared failure.
package httpadapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/localfile"
)

// maxResponseBytes caps how much of the endpoint response is read.
const maxResponseBytes = 1 << 20

// Adapter is an HTTP multipart upload adapter.
type Adapter struct {
	endpoint string
	field    string
	client   *http.Client
	headers  http.Header
}

// Option configures the adapter.
type Option func(*Adapter)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// WithHeader adds a request header, such as an Authorization token.
func WithHeader(key, value string) Option {
	return func(a *Adapter) {
		a.headers.Add(key, value)
	}
}

// WithFieldName sets the multipart form field carrying the file.
// Defaults to "upload".
func WithFieldName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.field = name
		}
	}
}

// New creates an adapter posting to the given endpoint.
func New(endpoint string, opts ...Option) *Adapter {
	a := &Adapter{
		endpoint: endpoint,
		field:    "upload",
		client:   &http.Client{Timeout: 5 * time.Minute},
		headers:  make(http.Header),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Upload implements the filerepo.Adapter interface.
func (a *Adapter) Upload(ctx context.Context, f localfile.File, progress func(pct int)) (filerepo.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, a.field, f.Name))
	if f.MIME != "" {
		hdr.Set("Content-Type", f.MIME)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return filerepo.Response{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(f.Bytes); err != nil {
		return filerepo.Response{}, fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return filerepo.Response{}, fmt.Errorf("build multipart body: %w", err)
	}

	body := &progressReader{
		r:      bytes.NewReader(buf.Bytes()),
		total:  buf.Len(),
		report: progress,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, body)
	if err != nil {
		return filerepo.Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for key, values := range a.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.ContentLength = int64(buf.Len())

	resp, err := a.client.Do(req)
	if err != nil {
		return filerepo.Response{}, fmt.Errorf("post %s: %w", a.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return filerepo.Response{}, fmt.Errorf("read response: %w", err)
	}

	// A declared rejection can arrive with any status code.
	if errField := gjson.GetBytes(raw, "error"); errField.Exists() {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = "upload rejected"
		}
		return filerepo.Response{}, fmt.Errorf("upload rejected: %s", msg)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return filerepo.Response{}, fmt.Errorf("upload failed: %s", resp.Status)
	}

	url := gjson.GetBytes(raw, "url").String()
	if url == "" {
		return filerepo.Response{}, fmt.Errorf("upload response missing url")
	}

	data := map[string]string{"url": url}
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		if key.Str != "url" && value.Type != gjson.JSON {
			data[key.Str] = value.String()
		}
		return true
	})
	return filerepo.Response{Data: data}, nil
}

// progressReader reports upload progress as the transport consumes the
// request body.
type progressReader struct {
	r      io.Reader
	total  int
	read   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += n
	if p.total > 0 && p.report != nil && n > 0 {
		p.report(p.read * 100 / p.total)
	}
	return n, err
}
