// Package memadapter provides a scriptable in-memory upload adapter for
// tests and demos: progress steps, declared failures, and holds that keep
// an upload in flight until released or aborted.
package memadapter

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/localfile"
)

// Adapter is an in-memory filerepo.Adapter.
type Adapter struct {
	steps     []int
	stepDelay time.Duration
	failWith  error
	hold      bool
	urlFor    func(f localfile.File) string

	mu       sync.Mutex
	release  chan struct{}
	uploaded []localfile.File
}

// Option configures the adapter.
type Option func(*Adapter)

// WithProgressSteps scripts the progress percentages reported before the
// upload resolves.
func WithProgressSteps(steps ...int) Option {
	return func(a *Adapter) {
		a.steps = steps
	}
}

// WithStepDelay inserts a delay between scripted progress steps.
func WithStepDelay(d time.Duration) Option {
	return func(a *Adapter) {
		a.stepDelay = d
	}
}

// WithFailure makes every upload fail with err after its progress steps.
func WithFailure(err error) Option {
	return func(a *Adapter) {
		a.failWith = err
	}
}

// WithHold makes uploads block after their progress steps until Release
// is called or the context is cancelled.
func WithHold() Option {
	return func(a *Adapter) {
		a.hold = true
	}
}

// WithURLFunc overrides how the resolved resource URL is derived.
func WithURLFunc(fn func(f localfile.File) string) Option {
	return func(a *Adapter) {
		if fn != nil {
			a.urlFor = fn
		}
	}
}

// New creates a memory adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		release: make(chan struct{}),
		urlFor: func(f localfile.File) string {
			return "https://files.invalid/" + url.PathEscape(f.Name)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Release unblocks every upload held by WithHold.
func (a *Adapter) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	select {
	case <-a.release:
	default:
		close(a.release)
	}
}

// Uploaded returns the files that resolved successfully, in order.
func (a *Adapter) Uploaded() []localfile.File {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]localfile.File, len(a.uploaded))
	copy(out, a.uploaded)
	return out
}

// Upload implements the filerepo.Adapter interface.
func (a *Adapter) Upload(ctx context.Context, f localfile.File, progress func(pct int)) (filerepo.Response, error) {
	for _, pct := range a.steps {
		select {
		case <-ctx.Done():
			return filerepo.Response{}, ctx.Err()
		default:
		}
		progress(pct)
		if a.stepDelay > 0 {
			select {
			case <-ctx.Done():
				return filerepo.Response{}, ctx.Err()
			case <-time.After(a.stepDelay):
			}
		}
	}

	if a.hold {
		select {
		case <-ctx.Done():
			return filerepo.Response{}, ctx.Err()
		case <-a.release:
		}
	}

	if a.failWith != nil {
		return filerepo.Response{}, a.failWith
	}

	a.mu.Lock()
	a.uploaded = append(a.uploaded, f)
	a.mu.Unlock()

	return filerepo.Response{Data: map[string]string{
		"url":  a.urlFor(f),
		"name": f.Name,
		"size": strconv.Itoa(f.Size()),
	}}, nil
}
