package dropfolder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dshills/filestorm/internal/command"
	"github.com/dshills/filestorm/internal/filerepo"
)

// uploadRecorder stands in for the upload command and records every
// source it receives.
type uploadRecorder struct {
	mu  sync.Mutex
	got []filerepo.Source
}

func (r *uploadRecorder) Name() string { return command.NameFileUpload }

func (r *uploadRecorder) Execute(_ context.Context, req command.Request) command.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, req.Files...)
	return command.Result{Status: command.StatusOK, Created: []string{"upload-1"}}
}

func (r *uploadRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func (r *uploadRecorder) sources() []filerepo.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]filerepo.Source, len(r.got))
	copy(out, r.got)
	return out
}

func newRecorder() (*command.Registry, *uploadRecorder) {
	rec := &uploadRecorder{}
	reg := command.NewRegistry()
	reg.Register(rec)
	return reg, rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatch_requiresDirectory(t *testing.T) {
	reg, _ := newRecorder()

	if _, err := Watch(filepath.Join(t.TempDir(), "missing"), reg); err == nil {
		t.Error("Watch() error = nil, want missing-directory failure")
	}

	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Watch(file, reg); err == nil {
		t.Error("Watch() error = nil, want non-directory failure")
	}
}

func TestWatch_scansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, rec := newRecorder()

	f, err := Watch(dir, reg, WithSettleInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer f.Close()

	waitFor(t, "existing file dispatch", func() bool { return rec.count() == 1 })

	src := rec.sources()[0]
	if src.Name != "report.pdf" {
		t.Errorf("source name = %q, want report.pdf", src.Name)
	}
	if src.URI != filepath.Join(dir, "report.pdf") {
		t.Errorf("source uri = %q, want the file path", src.URI)
	}
}

func TestFolder_uploadsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	reg, rec := newRecorder()

	f, err := Watch(dir, reg, WithSettleInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer f.Close()

	if err := os.WriteFile(filepath.Join(dir, "photo.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "dropped file dispatch", func() bool { return rec.count() == 1 })
	if name := rec.sources()[0].Name; name != "photo.png" {
		t.Errorf("source name = %q, want photo.png", name)
	}
}

func TestFolder_waitsForStableSize(t *testing.T) {
	dir := t.TempDir()
	reg, rec := newRecorder()

	f, err := Watch(dir, reg, WithSettleInterval(60*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer f.Close()

	path := filepath.Join(dir, "archive.zip")
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := out.Write([]byte("first half")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := out.Write([]byte(" second half")); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "settled dispatch", func() bool { return rec.count() == 1 })

	// The partial writes must coalesce into a single dispatch.
	time.Sleep(180 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Errorf("dispatch count = %d, want 1", got)
	}
}

func TestFolder_skipsHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	reg, rec := newRecorder()

	f, err := Watch(dir, reg, WithSettleInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer f.Close()

	if err := os.WriteFile(filepath.Join(dir, ".partial"), []byte("tmp"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "seen.txt"), []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "visible file dispatch", func() bool { return rec.count() == 1 })
	if name := rec.sources()[0].Name; name != "seen.txt" {
		t.Errorf("source name = %q, want seen.txt", name)
	}
}

func TestFolder_forgetsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	reg, rec := newRecorder()

	f, err := Watch(dir, reg, WithSettleInterval(150*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer f.Close()

	path := filepath.Join(dir, "gone.tmp")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pending entry", func() bool { return f.PendingCount() == 1 })
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "pending entry cleared", func() bool { return f.PendingCount() == 0 })
	time.Sleep(200 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Errorf("dispatch count = %d, want 0 after remove", got)
	}
}

func TestFolder_CloseStopsDispatch(t *testing.T) {
	dir := t.TempDir()
	reg, rec := newRecorder()

	f, err := Watch(dir, reg, WithSettleInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "late.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(80 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Errorf("dispatch count = %d, want 0 after Close", got)
	}
}
