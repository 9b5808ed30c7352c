package assetlog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend keeps assets in process memory. It backs tests and
// hosts that run without persistence configured.
type MemoryBackend struct {
	mu     sync.Mutex
	assets map[string]Asset
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{assets: make(map[string]Asset)}
}

// Record stores the asset, replacing any earlier record with the same ID.
func (b *MemoryBackend) Record(_ context.Context, a Asset) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	b.assets[a.ID] = a
	return nil
}

// List returns the assets recorded for a document ordered by upload
// time. An empty documentID lists every asset.
func (b *MemoryBackend) List(_ context.Context, documentID string) ([]Asset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Asset, 0, len(b.assets))
	for _, a := range b.assets {
		if documentID != "" && a.DocumentID != documentID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}

// Close is a no-op for the in-memory backend.
func (b *MemoryBackend) Close() error { return nil }
