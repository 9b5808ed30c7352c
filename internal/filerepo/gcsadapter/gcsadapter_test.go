package gcsadapter

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNew_requiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Error("New() error = nil, want bucket requirement")
	}
}

func TestAdapter_objectName(t *testing.T) {
	a := &Adapter{cfg: Config{KeyPrefix: "/attachments/"}}

	name := a.objectName("report.pdf")
	if !strings.HasPrefix(name, "attachments/") {
		t.Errorf("name = %q, want attachments/ prefix", name)
	}
	if !strings.HasSuffix(name, "/report.pdf") {
		t.Errorf("name = %q, want /report.pdf suffix", name)
	}
	if parts := strings.Split(name, "/"); len(parts) != 6 {
		t.Errorf("name = %q, want prefix/yyyy/mm/dd/uuid/name", name)
	}
}

func TestAdapter_resolveURL_public(t *testing.T) {
	a := &Adapter{cfg: Config{PublicURL: "https://cdn.example.com/"}}

	got, err := a.resolveURL("2026/08/25/id/a b.pdf")
	if err != nil {
		t.Fatalf("resolveURL() error = %v", err)
	}
	want := "https://cdn.example.com/2026/08/25/id/a%20b.pdf"
	if got != want {
		t.Errorf("resolveURL() = %q, want %q", got, want)
	}
}

func TestProgressReader(t *testing.T) {
	var seen []int
	p := &progressReader{
		r:      bytes.NewReader([]byte("0123456789")),
		total:  10,
		report: func(pct int) { seen = append(seen, pct) },
	}

	buf := make([]byte, 5)
	if _, err := p.Read(buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, err := p.Read(buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := []int{50, 100}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("progress = %v, want %v", seen, want)
	}
}
