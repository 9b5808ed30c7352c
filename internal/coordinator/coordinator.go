// Package coordinator tracks in-flight file uploads against a live
// document. It owns the uploadId→anchor side table, drives each upload
// task through its status machine, reconciles the table against document
// change batches, and emits lifecycle events for presentation layers.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/event/events"
	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/notify"
)

// Coordinator reconciles upload tasks with document mutations. One
// coordinator serves one document; it is created with the hosting
// extension and torn down with it.
type Coordinator struct {
	doc      *document.Memory
	repo     *filerepo.Repository
	pub      *event.Publisher
	notifier notify.Notifier
	logger   *slog.Logger
	fail     func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	table   *table
	driving map[string]bool
	closed  bool

	unobserve func()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNotifier sets the notifier used for declared upload failures.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithFailureHandler installs the handler for unexpected failures:
// errors that are neither declared upload failures nor aborts. These
// signal defects and are never swallowed. Defaults to an error log.
func WithFailureHandler(fn func(error)) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.fail = fn
		}
	}
}

// New creates a coordinator, registers it as a batch observer on the
// document, and hooks task progress reporting into the bus.
func New(doc *document.Memory, repo *filerepo.Repository, bus event.Bus, opts ...Option) *Coordinator {
	c := &Coordinator{
		doc:     doc,
		repo:    repo,
		pub:     event.NewPublisher(bus, "coordinator"),
		logger:  slog.Default(),
		table:   newTable(),
		driving: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = notify.NewSlog(notify.WithLogger(c.logger), notify.WithBus(bus), notify.WithDocumentID(doc.ID()))
	}
	if c.fail == nil {
		logger := c.logger
		c.fail = func(err error) {
			logger.Error("unexpected upload failure", "error", err)
		}
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.unobserve = doc.Observe(c)
	repo.SetProgressFunc(c.publishProgress)
	return c
}

// Anchor returns the current anchor node for an upload id.
func (c *Coordinator) Anchor(uploadID string) (document.NodeID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.node(uploadID)
}

// Tracked returns the number of live side-table entries.
func (c *Coordinator) Tracked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.len()
}

// Close detaches the coordinator from the document, cancels in-flight
// work, and waits for task goroutines to finish. Outstanding tasks
// conclude aborted.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	ids := c.table.ids()
	c.mu.Unlock()

	c.unobserve()
	c.cancel()
	c.wg.Wait()

	for _, id := range ids {
		if task, ok := c.repo.Task(id); ok {
			task.Abort()
			c.repo.DestroyTask(id)
		}
		c.mu.Lock()
		c.table.release(id)
		c.mu.Unlock()
	}
}

// drive runs one task's read and upload on its own goroutine and routes
// the outcome: success, declared failure, abort, or unexpected failure.
func (c *Coordinator) drive(task *filerepo.Task) {
	defer c.wg.Done()

	err := c.run(task)
	switch {
	case err == nil:
	case errors.Is(err, filerepo.ErrAborted):
		c.finishAborted(task)
	case task.Status() == filerepo.StatusError:
		c.finishFailed(task, err)
	default:
		// Neither a declared failure nor an abort: a defect somewhere in
		// the chain. Propagate, never swallow.
		c.fail(err)
	}
}

// run performs the read and upload steps, mirroring each status onto the
// anchor before the step that earns it concludes the transition.
func (c *Coordinator) run(task *filerepo.Task) error {
	uploadID := task.ID()

	if err := c.writeStatus(uploadID, filerepo.StatusReading); err != nil {
		return err
	}
	if _, err := task.Read(c.ctx); err != nil {
		return err
	}

	if err := c.writeStatus(uploadID, filerepo.StatusUploading); err != nil {
		return err
	}
	resp, err := task.Upload(c.ctx)
	if err != nil {
		return err
	}

	return c.finishComplete(task, resp)
}

// finishComplete writes the terminal status, emits the completion event
// so collaborators can attach the resolved URL, then strips the upload
// bookkeeping attributes and releases the task.
func (c *Coordinator) finishComplete(task *filerepo.Task, resp filerepo.Response) error {
	uploadID := task.ID()

	if err := c.writeStatus(uploadID, filerepo.StatusComplete); err != nil {
		return err
	}

	node, _ := c.Anchor(uploadID)
	f := task.File()
	_ = event.PublishEvent(c.ctx, c.pub, events.TopicUploadComplete, events.UploadComplete{
		UploadID:   uploadID,
		NodeID:     string(node),
		DocumentID: c.doc.ID(),
		Filename:   f.Name,
		MIME:       f.MIME,
		Size:       int64(f.Size()),
		URL:        resp.URL(),
		Data:       resp.Data,
	})

	if node != "" {
		err := c.doc.EnqueueChange(func(w *document.Writer) error {
			if err := w.RemoveAttr(node, document.AttrUploadID); err != nil {
				return err
			}
			return w.RemoveAttr(node, document.AttrUploadStatus)
		})
		if err != nil && !errors.Is(err, document.ErrNodeNotFound) {
			return err
		}
	}

	c.releaseEntry(uploadID)
	c.repo.DestroyTask(uploadID)
	return nil
}

// finishFailed surfaces a user-visible warning, removes the anchor (a
// failed upload leaves no placeholder), and releases the task.
func (c *Coordinator) finishFailed(task *filerepo.Task, cause error) {
	uploadID := task.ID()
	node, _ := c.Anchor(uploadID)

	name := task.File().Name
	if name == "" {
		name = task.Source().Name
	}
	c.notifier.Warning(c.ctx, "Upload failed", cause.Error(), "file", name)

	if node != "" {
		err := c.doc.EnqueueChange(func(w *document.Writer) error {
			err := w.Remove(node)
			if errors.Is(err, document.ErrNodeNotFound) {
				return nil
			}
			return err
		})
		if err != nil {
			c.fail(err)
		}
	}

	c.releaseEntry(uploadID)
	c.repo.DestroyTask(uploadID)
	_ = event.PublishEvent(c.ctx, c.pub, events.TopicUploadFailed, events.UploadFailed{
		UploadID:   uploadID,
		NodeID:     string(node),
		DocumentID: c.doc.ID(),
		Filename:   name,
		Reason:     cause.Error(),
	})
}

// finishAborted releases the task silently. The anchor is already gone;
// no warning, no document mutation.
func (c *Coordinator) finishAborted(task *filerepo.Task) {
	uploadID := task.ID()
	c.releaseEntry(uploadID)
	c.repo.DestroyTask(uploadID)
	_ = event.PublishEvent(c.ctx, c.pub, events.TopicUploadAborted, events.UploadAborted{
		UploadID:   uploadID,
		DocumentID: c.doc.ID(),
	})
}

func (c *Coordinator) releaseEntry(uploadID string) {
	c.mu.Lock()
	c.table.release(uploadID)
	delete(c.driving, uploadID)
	c.mu.Unlock()
}

// writeStatus mirrors a status onto the current anchor as a non-undoable
// batch and publishes the status change. A missing anchor or node means
// a discard is racing in; the next task operation surfaces the abort.
func (c *Coordinator) writeStatus(uploadID string, st filerepo.Status) error {
	node, ok := c.Anchor(uploadID)
	if !ok {
		return nil
	}

	err := c.doc.EnqueueChange(func(w *document.Writer) error {
		return w.SetAttr(node, document.AttrUploadStatus, st.String())
	})
	if err != nil {
		if errors.Is(err, document.ErrNodeNotFound) {
			return nil
		}
		return err
	}

	_ = event.PublishEvent(c.ctx, c.pub, events.TopicUploadStatusChanged, events.UploadStatusChanged{
		UploadID:   uploadID,
		NodeID:     string(node),
		DocumentID: c.doc.ID(),
		Status:     st.String(),
	})
	return nil
}

// publishProgress forwards task progress to the bus. Installed as the
// repository progress hook; runs on the uploading goroutine.
func (c *Coordinator) publishProgress(uploadID string, pct int) {
	node, _ := c.Anchor(uploadID)
	_ = event.PublishEvent(c.ctx, c.pub, events.TopicUploadProgress, events.UploadProgress{
		UploadID:   uploadID,
		NodeID:     string(node),
		DocumentID: c.doc.ID(),
		Percent:    pct,
	})
}
