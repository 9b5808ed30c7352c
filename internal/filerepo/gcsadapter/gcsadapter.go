// Package gcsadapter uploads files to Google Cloud Storage. The
// resolved URL is either built from a public base URL or V4-signed for
// a configurable lifetime.
package gcsadapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/localfile"
)

// Config holds bucket settings. Credentials come from the environment
// via Application Default Credentials.
type Config struct {
	// Bucket receives the uploads.
	Bucket string

	// KeyPrefix is prepended to every object name.
	KeyPrefix string

	// PublicURL, when set, resolves uploads as PublicURL/<name> instead
	// of a signed GET.
	PublicURL string

	// SignTTL bounds signed GET URLs. Defaults to 15 minutes.
	SignTTL time.Duration
}

// Adapter is a Google Cloud Storage upload adapter.
type Adapter struct {
	cfg    Config
	client *storage.Client
	bucket *storage.BucketHandle
}

// New creates a GCS adapter using ambient credentials.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs adapter requires a bucket")
	}
	if cfg.SignTTL <= 0 {
		cfg.SignTTL = 15 * time.Minute
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &Adapter{
		cfg:    cfg,
		client: client,
		bucket: client.Bucket(cfg.Bucket),
	}, nil
}

// Upload implements the filerepo.Adapter interface.
func (a *Adapter) Upload(ctx context.Context, f localfile.File, progress func(pct int)) (filerepo.Response, error) {
	name := a.objectName(f.Name)

	w := a.bucket.Object(name).NewWriter(ctx)
	if f.MIME != "" {
		w.ContentType = f.MIME
	}
	body := &progressReader{
		r:      bytes.NewReader(f.Bytes),
		total:  len(f.Bytes),
		report: progress,
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return filerepo.Response{}, fmt.Errorf("write object %s: %w", name, err)
	}
	// Close commits the object; a write can still fail here.
	if err := w.Close(); err != nil {
		return filerepo.Response{}, fmt.Errorf("commit object %s: %w", name, err)
	}

	resolved, err := a.resolveURL(name)
	if err != nil {
		return filerepo.Response{}, err
	}
	return filerepo.Response{Data: map[string]string{
		"url":    resolved,
		"bucket": a.cfg.Bucket,
		"key":    name,
		"name":   f.Name,
	}}, nil
}

// Close releases the storage client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// objectName builds a date-partitioned name: prefix/yyyy/mm/dd/<uuid>/<name>.
func (a *Adapter) objectName(name string) string {
	d := time.Now().UTC()
	key := fmt.Sprintf("%d/%02d/%02d/%s/%s", d.Year(), d.Month(), d.Day(), uuid.New(), name)
	if p := strings.Trim(a.cfg.KeyPrefix, "/"); p != "" {
		key = p + "/" + key
	}
	return key
}

func (a *Adapter) resolveURL(name string) (string, error) {
	if a.cfg.PublicURL != "" {
		return strings.TrimSuffix(a.cfg.PublicURL, "/") + "/" + escapeName(name), nil
	}

	signed, err := a.bucket.SignedURL(name, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(a.cfg.SignTTL),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", name, err)
	}
	return signed, nil
}

// escapeName percent-encodes each name segment, keeping the slashes.
func escapeName(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type progressReader struct {
	r      *bytes.Reader
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
