package filerepo

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/filestorm/internal/localfile"
)

// Repository creates and tracks upload tasks. One repository serves one
// editor instance; it is torn down with it.
type Repository struct {
	logger     *slog.Logger
	fetcher    *localfile.Fetcher
	adapter    Adapter
	onProgress func(taskID string, pct int)

	mu     sync.RWMutex
	tasks  map[string]*Task
	closed bool
	warned bool
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithAdapter sets the upload adapter. Without one, CreateTask returns
// ErrNoAdapter.
func WithAdapter(a Adapter) RepositoryOption {
	return func(r *Repository) {
		r.adapter = a
	}
}

// WithFetcher sets the fetcher used to materialize task sources.
func WithFetcher(f *localfile.Fetcher) RepositoryOption {
	return func(r *Repository) {
		if f != nil {
			r.fetcher = f
		}
	}
}

// WithLogger sets the repository logger.
func WithLogger(l *slog.Logger) RepositoryOption {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithProgressFunc installs a callback invoked on every task progress
// change. The callback runs on the uploading goroutine and must not block.
func WithProgressFunc(fn func(taskID string, pct int)) RepositoryOption {
	return func(r *Repository) {
		r.onProgress = fn
	}
}

// SetProgressFunc installs the progress callback after construction.
// Tasks capture the callback at creation time, so install it before the
// first CreateTask. Construction-order escape hatch for callers that
// build the repository before the component consuming progress.
func (r *Repository) SetProgressFunc(fn func(taskID string, pct int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onProgress = fn
}

// NewRepository creates a task repository.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		logger:  slog.Default(),
		fetcher: localfile.NewFetcher(),
		tasks:   make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateTask registers a new idle task for the source. Returns
// ErrNoAdapter when no adapter is configured; the missing-adapter
// condition is logged once per repository, not per file.
func (r *Repository) CreateTask(src Source) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRepositoryClosed
	}
	if r.adapter == nil {
		if !r.warned {
			r.logger.Warn("upload requested with no adapter configured")
			r.warned = true
		}
		return nil, ErrNoAdapter
	}

	t := &Task{
		id:         uuid.NewString(),
		src:        src,
		adapter:    r.adapter,
		fetcher:    r.fetcher,
		onProgress: r.onProgress,
		status:     StatusIdle,
	}
	r.tasks[t.id] = t
	return t, nil
}

// Task returns the task with the given id.
func (r *Repository) Task(id string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	return t, ok
}

// DestroyTask releases the task's registry entry, aborting it if it has
// not concluded. Reports whether an entry was released, so callers can
// verify the release happened exactly once.
func (r *Repository) DestroyTask(id string) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	t.Abort()
	return true
}

// Len returns the number of live tasks.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Close aborts and releases every outstanding task. Subsequent CreateTask
// calls fail with ErrRepositoryClosed.
func (r *Repository) Close() {
	r.mu.Lock()
	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.tasks = make(map[string]*Task)
	r.closed = true
	r.mu.Unlock()

	for _, t := range tasks {
		t.Abort()
	}
}
