package filerepo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/filestorm/internal/localfile"
)

// Task carries one file through read and upload. Methods are thread-safe;
// Read and Upload are intended to run sequentially on one goroutine while
// Abort may arrive from any other.
type Task struct {
	id         string
	src        Source
	adapter    Adapter
	fetcher    *localfile.Fetcher
	onProgress func(taskID string, pct int)

	mu       sync.Mutex
	status   Status
	progress int
	file     localfile.File
	cancel   context.CancelFunc
}

// ID returns the task identifier.
func (t *Task) ID() string {
	return t.id
}

// Source returns the source the task was created for.
func (t *Task) Source() Source {
	return t.src
}

// Status returns the current lifecycle status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Progress returns the upload progress percentage. It is monotonic
// non-decreasing while uploading and meaningless otherwise.
func (t *Task) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// File returns the materialized file. Zero before Read succeeds.
func (t *Task) File() localfile.File {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file
}

// Read materializes the task's source into memory, moving idle to
// reading. Returns ErrAborted if the task was aborted before or during
// the fetch.
func (t *Task) Read(ctx context.Context) (localfile.File, error) {
	if err := t.transition(StatusReading); err != nil {
		return localfile.File{}, err
	}

	cctx, cancel := context.WithCancel(ctx)
	if !t.armCancel(cancel) {
		cancel()
		return localfile.File{}, ErrAborted
	}
	defer t.disarmCancel()

	f, err := t.fetcher.Fetch(cctx, t.src.URI)
	if err != nil {
		if t.concludeFailure(cctx) == StatusAborted {
			return localfile.File{}, ErrAborted
		}
		return localfile.File{}, err
	}
	if t.src.Name != "" {
		f.Name = t.src.Name
	}
	if t.src.MIME != "" {
		f.MIME = strings.ToLower(t.src.MIME)
	}

	t.mu.Lock()
	if t.status == StatusAborted {
		t.mu.Unlock()
		return localfile.File{}, ErrAborted
	}
	t.file = f
	t.mu.Unlock()
	return f, nil
}

// Upload sends the materialized file through the adapter, moving reading
// to uploading. On success the task is complete. A declared adapter
// failure moves the task to error and returns the adapter's error;
// cancellation returns ErrAborted.
func (t *Task) Upload(ctx context.Context) (Response, error) {
	if err := t.transition(StatusUploading); err != nil {
		return Response{}, err
	}

	cctx, cancel := context.WithCancel(ctx)
	if !t.armCancel(cancel) {
		cancel()
		return Response{}, ErrAborted
	}
	defer t.disarmCancel()

	resp, err := t.adapter.Upload(cctx, t.File(), t.setProgress)
	if err != nil {
		if t.concludeFailure(cctx) == StatusAborted {
			return Response{}, ErrAborted
		}
		return Response{}, err
	}

	t.mu.Lock()
	if t.status == StatusAborted {
		t.mu.Unlock()
		return Response{}, ErrAborted
	}
	t.status = StatusComplete
	t.progress = 100
	t.mu.Unlock()
	return resp, nil
}

// Abort moves the task to aborted and cancels any in-flight operation.
// Aborting a terminal task is a no-op.
func (t *Task) Abort() {
	t.mu.Lock()
	if t.status.Terminal() {
		t.mu.Unlock()
		return
	}
	t.status = StatusAborted
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (t *Task) transition(to Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusAborted {
		return ErrAborted
	}
	if !CanTransition(t.status, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, t.status, to)
	}
	t.status = to
	return nil
}

// armCancel stores the cancel func for Abort to fire. Returns false if
// the task was aborted before the operation started.
func (t *Task) armCancel(cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusAborted {
		return false
	}
	t.cancel = cancel
	return true
}

func (t *Task) disarmCancel() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// concludeFailure decides whether an operation error means aborted or
// error: an abort that already landed, or a cancelled context, wins.
func (t *Task) concludeFailure(ctx context.Context) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusAborted {
		return StatusAborted
	}
	if ctx.Err() != nil {
		t.status = StatusAborted
		return StatusAborted
	}
	t.status = StatusError
	return StatusError
}

// setProgress raises the progress percentage. Values are clamped to
// [0,100]; regressions and updates outside uploading are dropped.
func (t *Task) setProgress(pct int) {
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}

	t.mu.Lock()
	if t.status != StatusUploading || pct <= t.progress {
		t.mu.Unlock()
		return
	}
	t.progress = pct
	fn := t.onProgress
	t.mu.Unlock()

	if fn != nil {
		fn(t.id, pct)
	}
}
