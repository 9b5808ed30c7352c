// Package dropfolder feeds a watched directory into the upload command.
// Files that appear in the folder are uploaded once their size stops
// changing, so partially copied files are never picked up mid-write.
package dropfolder

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"

	"github.com/dshills/filestorm/internal/command"
	"github.com/dshills/filestorm/internal/filerepo"
)

const (
	defaultSettleInterval = 200 * time.Millisecond
	defaultPoolSize       = 4
)

// Folder watches one directory and dispatches settled files to the
// upload command as path sources.
type Folder struct {
	dir      string
	registry *command.Registry
	fs       afero.Fs
	settle   time.Duration
	poolSize int
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	pool    *ants.Pool

	mu      sync.Mutex
	pending map[string]*pendingFile
	closed  bool

	closeCh  chan struct{}
	loopWg   sync.WaitGroup
	inflight sync.WaitGroup
}

// pendingFile tracks a file waiting for its size to settle.
type pendingFile struct {
	timer *time.Timer
	size  int64
}

// Option configures a Folder.
type Option func(*Folder)

// WithLogger sets the folder logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Folder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithFilesystem sets the filesystem used for stat calls and the
// initial scan. Change notifications still come from the host OS.
func WithFilesystem(fs afero.Fs) Option {
	return func(f *Folder) {
		if fs != nil {
			f.fs = fs
		}
	}
}

// WithSettleInterval sets how long a file's size must hold steady
// before it is uploaded.
func WithSettleInterval(d time.Duration) Option {
	return func(f *Folder) {
		if d > 0 {
			f.settle = d
		}
	}
}

// WithPoolSize sets the number of concurrent upload dispatches.
func WithPoolSize(n int) Option {
	return func(f *Folder) {
		if n > 0 {
			f.poolSize = n
		}
	}
}

// Watch starts watching dir and dispatching its files to the upload
// command registered in registry. Files already in the folder are
// picked up by an initial scan and go through the same settle check as
// new arrivals.
func Watch(dir string, registry *command.Registry, opts ...Option) (*Folder, error) {
	f := &Folder{
		dir:      dir,
		registry: registry,
		fs:       afero.NewOsFs(),
		settle:   defaultSettleInterval,
		poolSize: defaultPoolSize,
		logger:   slog.Default(),
		pending:  make(map[string]*pendingFile),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	info, err := f.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, ErrNotDirectory
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	f.watcher = watcher

	pool, err := ants.NewPool(f.poolSize, ants.WithOptions(ants.Options{
		PanicHandler: func(v any) {
			f.logger.Error("upload dispatch panicked", "dir", f.dir, "panic", v)
		},
	}))
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	f.pool = pool

	if err := f.scan(); err != nil {
		f.logger.Warn("initial scan failed", "dir", f.dir, "error", err)
	}

	f.loopWg.Add(1)
	go f.watchLoop()

	return f, nil
}

// Dir returns the watched directory.
func (f *Folder) Dir() string {
	return f.dir
}

// PendingCount returns the number of files waiting to settle.
func (f *Folder) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Close stops the watcher, cancels pending settle timers, and waits for
// in-flight dispatches to finish. Files still settling are dropped.
func (f *Folder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.closeCh)
	for path, p := range f.pending {
		p.timer.Stop()
		delete(f.pending, path)
	}
	f.mu.Unlock()

	err := f.watcher.Close()
	f.loopWg.Wait()
	f.inflight.Wait()
	f.pool.Release()
	return err
}

// scan queues every regular file already in the folder.
func (f *Folder) scan() error {
	entries, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f.observe(filepath.Join(f.dir, entry.Name()))
	}
	return nil
}

// watchLoop handles incoming fsnotify events until the watcher closes.
func (f *Folder) watchLoop() {
	defer f.loopWg.Done()

	for {
		select {
		case <-f.closeCh:
			return

		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			f.handleEvent(ev)

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("watch error", "dir", f.dir, "error", err)
		}
	}
}

func (f *Folder) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		f.observe(ev.Name)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		f.forget(ev.Name)
	}
}

// observe records the file's current size and (re)arms its settle
// timer. Hidden files and directories never enter the pending set.
func (f *Folder) observe(path string) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}
	info, err := f.fs.Stat(path)
	if err != nil {
		f.forget(path)
		return
	}
	if info.IsDir() {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	if p, ok := f.pending[path]; ok {
		p.size = info.Size()
		p.timer.Reset(f.settle)
		return
	}
	p := &pendingFile{size: info.Size()}
	p.timer = time.AfterFunc(f.settle, func() {
		f.settleCheck(path)
	})
	f.pending[path] = p
}

// settleCheck fires when a pending file's timer expires. A size still
// in motion rearms the timer; a stable one hands the file to the pool.
func (f *Folder) settleCheck(path string) {
	info, err := f.fs.Stat(path)
	if err != nil {
		f.forget(path)
		return
	}

	f.mu.Lock()
	p, ok := f.pending[path]
	if !ok || f.closed {
		f.mu.Unlock()
		return
	}
	if info.Size() != p.size {
		p.size = info.Size()
		p.timer.Reset(f.settle)
		f.mu.Unlock()
		return
	}
	delete(f.pending, path)
	f.mu.Unlock()

	f.submit(path)
}

// forget drops a pending file, stopping its timer.
func (f *Folder) forget(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pending[path]; ok {
		p.timer.Stop()
		delete(f.pending, path)
	}
}

// submit hands a settled file to the dispatch pool.
func (f *Folder) submit(path string) {
	f.inflight.Add(1)
	err := f.pool.Submit(func() {
		defer f.inflight.Done()
		f.dispatch(path)
	})
	if err != nil {
		f.inflight.Done()
		f.logger.Error("submit upload", "file", path, "error", err)
	}
}

// dispatch runs the upload command for one settled file.
func (f *Folder) dispatch(path string) {
	res := f.registry.Execute(context.Background(), command.NameFileUpload, command.Request{
		Files: []filerepo.Source{{URI: path, Name: filepath.Base(path)}},
	})
	switch res.Status {
	case command.StatusError:
		f.logger.Error("drop folder upload failed", "file", path, "error", res.Err)
	case command.StatusNoOp:
		f.logger.Debug("drop folder file skipped", "file", path, "skipped", res.Skipped)
	default:
		f.logger.Info("drop folder file queued", "file", path, "uploads", res.Created)
	}
}
