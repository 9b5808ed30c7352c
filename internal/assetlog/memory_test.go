package assetlog

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBackend_listFiltersAndOrders(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	seed := []Asset{
		{ID: "u2", DocumentID: "doc-1", Name: "b.pdf", UploadedAt: base.Add(2 * time.Minute)},
		{ID: "u1", DocumentID: "doc-1", Name: "a.pdf", UploadedAt: base},
		{ID: "u3", DocumentID: "doc-2", Name: "c.pdf", UploadedAt: base.Add(time.Minute)},
	}
	for _, a := range seed {
		if err := b.Record(ctx, a); err != nil {
			t.Fatalf("Record(%s) error = %v", a.ID, err)
		}
	}

	got, err := b.List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "u1" || got[1].ID != "u2" {
		t.Errorf("List(doc-1) = %v, want [u1 u2]", ids(got))
	}

	all, err := b.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "u1" || all[1].ID != "u3" || all[2].ID != "u2" {
		t.Errorf("List(\"\") = %v, want [u1 u3 u2]", ids(all))
	}
}

func TestMemoryBackend_recordReplacesByID(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	ts := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if err := b.Record(ctx, Asset{ID: "u1", DocumentID: "doc-1", URL: "https://files/old", UploadedAt: ts}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Record(ctx, Asset{ID: "u1", DocumentID: "doc-1", URL: "https://files/new", UploadedAt: ts}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := b.List(ctx, "doc-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://files/new" {
		t.Errorf("List() = %v, want one asset with the new URL", got)
	}
}

func TestMemoryBackend_recordDefaultsUploadedAt(t *testing.T) {
	b := NewMemoryBackend()

	if err := b.Record(context.Background(), Asset{ID: "u1"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	got, err := b.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].UploadedAt.IsZero() {
		t.Errorf("UploadedAt not defaulted: %v", got)
	}
}

func ids(assets []Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}
