package app

import (
	"testing"

	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/progressview"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{0, "[----------] 0%"},
		{40, "[####------] 40%"},
		{100, "[##########] 100%"},
		{-5, "[----------] 0%"},
		{250, "[##########] 100%"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.pct); got != tt.want {
			t.Errorf("progressBar(%d) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestScreenBinder(t *testing.T) {
	b := newScreenBinder()
	node := document.NodeID("n-1")

	if _, ok := b.decoration(node); ok {
		t.Error("decoration present before Apply")
	}

	b.Apply(node, progressview.Decoration{Bar: true, Percent: 40})
	d, ok := b.decoration(node)
	if !ok || !d.Bar || d.Percent != 40 {
		t.Errorf("decoration = %+v, %v", d, ok)
	}
	if b.active() != 1 {
		t.Errorf("active = %d, want 1", b.active())
	}

	b.Clear(node)
	if _, ok := b.decoration(node); ok {
		t.Error("decoration survived Clear")
	}
	if b.active() != 0 {
		t.Errorf("active = %d, want 0", b.active())
	}
}
