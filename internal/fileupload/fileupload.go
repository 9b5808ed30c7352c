// Package fileupload assembles the upload subsystem into one extension
// a host editor attaches to its document: type matcher, task repository,
// lifecycle coordinator, progress presentation, command surface, and the
// completion listener that links anchors to their uploaded location.
package fileupload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/filestorm/internal/command"
	"github.com/dshills/filestorm/internal/coordinator"
	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/event/events"
	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/localfile"
	"github.com/dshills/filestorm/internal/mimetype"
	"github.com/dshills/filestorm/internal/notify"
	"github.com/dshills/filestorm/internal/progressview"
)

// Config is the host-facing configuration of the extension.
type Config struct {
	// Types are the accepted file-type tokens, extensions or full MIME
	// types. Empty means the default set.
	Types []string
}

func (c Config) withDefaults() Config {
	if len(c.Types) == 0 {
		c.Types = append([]string(nil), mimetype.DefaultTypes...)
	}
	return c
}

// Host carries the collaborators the editor runtime provides.
type Host struct {
	// Document is the document the extension serves. Required.
	Document *document.Memory

	// Bus is the host event bus. Required.
	Bus event.Bus

	// Adapter performs uploads. Nil means uploads are skipped silently.
	Adapter filerepo.Adapter

	// Binder receives progress decorations. Nil disables presentation.
	Binder progressview.Binder

	// Picker opens the host file chooser for button clicks. Optional.
	Picker command.Picker

	// Registry is the host command registry. Created when nil.
	Registry *command.Registry
}

// Extension is the attached upload subsystem.
type Extension struct {
	doc       *document.Memory
	matcher   *mimetype.Matcher
	repo      *filerepo.Repository
	coord     *coordinator.Coordinator
	presenter *progressview.Presenter
	registry  *command.Registry
	button    *command.FileButton
	sub       *event.Subscriber
	logger    *slog.Logger

	closeOnce sync.Once
}

// Option configures the extension.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	fetcher    *localfile.Fetcher
	notifier   notify.Notifier
	glyphDelay time.Duration
}

// WithLogger sets the extension logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFetcher overrides the fetcher used to materialize sources.
func WithFetcher(f *localfile.Fetcher) Option {
	return func(s *settings) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithNotifier overrides the user-facing failure notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(s *settings) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithGlyphDelay overrides how long the completion glyph stays visible.
func WithGlyphDelay(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.glyphDelay = d
		}
	}
}

// Attach wires the upload subsystem to the host and returns the running
// extension. The command registers under both toolbar names.
func Attach(host Host, cfg Config, opts ...Option) (*Extension, error) {
	if host.Document == nil {
		return nil, ErrNoDocument
	}
	if host.Bus == nil {
		return nil, ErrNoBus
	}

	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	cfg = cfg.withDefaults()

	ext := &Extension{
		doc:     host.Document,
		matcher: mimetype.NewMatcher(cfg.Types),
		logger:  s.logger,
	}

	repoOpts := []filerepo.RepositoryOption{filerepo.WithLogger(s.logger)}
	if host.Adapter != nil {
		repoOpts = append(repoOpts, filerepo.WithAdapter(host.Adapter))
	}
	if s.fetcher != nil {
		repoOpts = append(repoOpts, filerepo.WithFetcher(s.fetcher))
	}
	ext.repo = filerepo.NewRepository(repoOpts...)

	coordOpts := []coordinator.Option{coordinator.WithLogger(s.logger)}
	if s.notifier != nil {
		coordOpts = append(coordOpts, coordinator.WithNotifier(s.notifier))
	}
	ext.coord = coordinator.New(host.Document, ext.repo, host.Bus, coordOpts...)

	if host.Binder != nil {
		pvOpts := []progressview.Option{progressview.WithLogger(s.logger)}
		if s.glyphDelay > 0 {
			pvOpts = append(pvOpts, progressview.WithGlyphDelay(s.glyphDelay))
		}
		presenter, err := progressview.New(host.Bus, host.Binder, pvOpts...)
		if err != nil {
			ext.coord.Close()
			ext.repo.Close()
			return nil, err
		}
		ext.presenter = presenter
	}

	ext.registry = host.Registry
	if ext.registry == nil {
		ext.registry = command.NewRegistry()
	}
	upload := command.NewUploadCommand(host.Document, ext.repo, ext.matcher, host.Bus, command.WithLogger(s.logger))
	ext.registry.Register(upload, command.NameUploadFile)
	ext.button = command.NewFileButton(ext.registry, host.Picker, command.WithButtonLogger(s.logger))

	ext.sub = event.NewSubscriber(host.Bus)
	if err := ext.listenForCompletion(); err != nil {
		ext.teardown()
		return nil, err
	}

	return ext, nil
}

// listenForCompletion writes the resolved URL onto the anchor as a
// linkHref once an upload completes. The write happens before the
// coordinator strips the bookkeeping attributes, on the same goroutine.
func (e *Extension) listenForCompletion() error {
	doc := e.doc
	logger := e.logger
	_, err := event.SubscribePayload(e.sub, events.TopicUploadComplete,
		func(_ context.Context, ev events.UploadComplete) error {
			if ev.DocumentID != doc.ID() || ev.NodeID == "" || ev.URL == "" {
				return nil
			}
			err := doc.EnqueueChange(func(w *document.Writer) error {
				err := w.SetAttr(document.NodeID(ev.NodeID), document.AttrLinkHref, ev.URL)
				if errors.Is(err, document.ErrNodeNotFound) {
					return nil
				}
				return err
			})
			if err != nil {
				logger.Error("link completed upload", "upload", ev.UploadID, "error", err)
			}
			return nil
		})
	return err
}

// Registry returns the command registry the extension registered with.
func (e *Extension) Registry() *command.Registry {
	return e.registry
}

// Button returns the toolbar control.
func (e *Extension) Button() *command.FileButton {
	return e.button
}

// Repository returns the task repository.
func (e *Extension) Repository() *filerepo.Repository {
	return e.repo
}

// Matcher returns the configured type matcher.
func (e *Extension) Matcher() *mimetype.Matcher {
	return e.matcher
}

// Document returns the document the extension serves.
func (e *Extension) Document() *document.Memory {
	return e.doc
}

// Close detaches the extension: completion listener unsubscribed,
// presentation timers stopped, coordinator unobserved, outstanding
// tasks aborted.
func (e *Extension) Close() {
	e.closeOnce.Do(e.teardown)
}

func (e *Extension) teardown() {
	if e.registry != nil {
		e.registry.Unregister(command.NameFileUpload)
		e.registry.Unregister(command.NameUploadFile)
	}
	if e.sub != nil {
		e.sub.Close()
	}
	if e.presenter != nil {
		e.presenter.Close()
	}
	if e.coord != nil {
		e.coord.Close()
	}
	if e.repo != nil {
		e.repo.Close()
	}
}
