// Package assetlog records completed uploads so hosts can answer "which
// files are attached to this document" after the editing session that
// produced them is gone.
package assetlog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrUnsupportedDSN reports an Open DSN whose scheme no backend claims.
var ErrUnsupportedDSN = errors.New("unsupported asset log DSN")

// Asset is one completed upload.
type Asset struct {
	// ID is the upload id the repository assigned to the task.
	ID string

	// DocumentID names the document the file was inserted into.
	DocumentID string

	// Name is the display filename.
	Name string

	// MIME is the resolved content type.
	MIME string

	// Size is the fetched byte count.
	Size int64

	// URL is where the storage adapter put the file.
	URL string

	// UploadedAt is when the completion was recorded.
	UploadedAt time.Time
}

// Backend persists completed uploads.
type Backend interface {
	// Record stores the asset, replacing any earlier record with the
	// same ID.
	Record(ctx context.Context, a Asset) error

	// List returns the assets recorded for a document in upload order.
	// An empty documentID lists every asset.
	List(ctx context.Context, documentID string) ([]Asset, error)

	// Close releases backend resources.
	Close() error
}

// Open builds a backend from a DSN. An empty DSN selects the in-memory
// backend; postgres:// and postgresql:// connect to PostgreSQL and
// bring its schema up to date; redis:// and rediss:// connect to Redis.
func Open(ctx context.Context, dsn string) (Backend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return NewMemoryBackend(), nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse asset log DSN: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "memory", "mem":
		return NewMemoryBackend(), nil
	case "postgres", "postgresql":
		return OpenPostgres(ctx, dsn)
	case "redis", "rediss":
		return OpenRedis(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDSN, parsed.Scheme)
	}
}
