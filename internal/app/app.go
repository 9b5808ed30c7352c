// Package app hosts the interactive terminal demo of the upload
// subsystem. It wires a document, the event bus, and the upload
// extension to a tcell screen and runs the main loop: pressing u
// attaches a sample file and the document view shows the anchor moving
// through placeholder, progress bar, and completion glyph.
package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/filestorm/internal/command"
	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/filerepo/memadapter"
	"github.com/dshills/filestorm/internal/fileupload"
)

// Application is the demo shell. It owns the document, the upload
// extension, and the screen, and coordinates their lifecycles.
type Application struct {
	mu sync.RWMutex

	// Core infrastructure
	bus    event.Bus
	logger *slog.Logger

	// Document and upload subsystem
	doc     *document.Memory
	adapter *memadapter.Adapter
	ext     *fileupload.Extension
	picker  *samplePicker

	// Presentation
	screen tcell.Screen
	binder *screenBinder

	// State
	running   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	// Options
	opts Options
}

// Options configures the application.
type Options struct {
	// DocumentID names the demo document.
	DocumentID string

	// Types are the accepted file-type tokens. Empty accepts the
	// sample set the picker cycles through.
	Types []string

	// StepDelay paces the scripted adapter so the progress bar is
	// visible. Defaults to 40ms per step.
	StepDelay time.Duration

	// GlyphDelay overrides how long the completion glyph stays visible.
	GlyphDelay time.Duration

	// Logger receives subsystem logs.
	Logger *slog.Logger

	// Screen overrides the terminal screen. Tests inject a simulation
	// screen here; leaving it nil attaches to the real terminal.
	Screen tcell.Screen
}

func (o Options) withDefaults() Options {
	if o.DocumentID == "" {
		o.DocumentID = "demo"
	}
	if len(o.Types) == 0 {
		o.Types = []string{"pdf", "png", "txt"}
	}
	if o.StepDelay <= 0 {
		o.StepDelay = 40 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// New creates the application and attaches the upload subsystem.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts: opts.withDefaults(),
		done: make(chan struct{}),
	}
	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	app.logger = app.opts.Logger

	// 1. Event bus - messaging foundation
	app.bus = event.NewBus()

	// 2. Document, seeded with the hint line uploads insert after
	app.doc = document.NewMemory(document.WithDocumentID(app.opts.DocumentID))
	if err := app.seedDocument(); err != nil {
		_ = app.bus.Close()
		return &InitError{Component: "document", Err: err}
	}

	// 3. Scripted adapter: staged progress, instant URLs
	app.adapter = memadapter.New(
		memadapter.WithProgressSteps(10, 25, 40, 55, 70, 85, 100),
		memadapter.WithStepDelay(app.opts.StepDelay),
	)

	// 4. Screen binder receives the progress decorations
	app.binder = newScreenBinder()

	// 5. Upload extension with the sample picker behind the u key
	app.picker = newSamplePicker()
	ext, err := fileupload.Attach(fileupload.Host{
		Document: app.doc,
		Bus:      app.bus,
		Adapter:  app.adapter,
		Binder:   app.binder,
		Picker:   app.picker,
	}, fileupload.Config{Types: app.opts.Types},
		fileupload.WithLogger(app.logger),
		fileupload.WithGlyphDelay(app.opts.GlyphDelay),
	)
	if err != nil {
		_ = app.bus.Close()
		return &InitError{Component: "upload extension", Err: err}
	}
	app.ext = ext

	return nil
}

// seedDocument writes the hint line and parks the caret after it.
func (app *Application) seedDocument() error {
	return app.doc.Change(func(w *document.Writer) error {
		sel := w.Selection()
		id, err := w.InsertAtSelection(sel, document.Inline{Text: "Attachments: "}, false)
		if err != nil {
			return err
		}
		idx, ok := w.RunIndex(sel.Block, id)
		if !ok {
			return document.ErrNodeNotFound
		}
		return w.SetSelection(document.Selection{Block: sel.Block, Run: idx + 1})
	})
}

// Run starts the main loop. Blocks until the user quits or Shutdown is
// called.
func (app *Application) Run() error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	screen := app.opts.Screen
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return &InitError{Component: "screen", Err: err}
		}
	}
	if err := screen.Init(); err != nil {
		return &InitError{Component: "screen", Err: err}
	}
	defer screen.Fini()

	app.mu.Lock()
	app.screen = screen
	app.mu.Unlock()

	return app.eventLoop(screen)
}

// eventLoop polls the screen and redraws on a frame ticker, the way a
// hosting editor would drive its render pass.
func (app *Application) eventLoop(screen tcell.Screen) error {
	const frameTime = time.Second / 30

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-app.done:
				return
			}
		}
	}()

	app.draw(screen)

	for {
		select {
		case <-app.done:
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := app.handleEvent(screen, ev); err != nil {
				return err
			}

		case <-ticker.C:
			app.draw(screen)
		}
	}
}

func (app *Application) handleEvent(screen tcell.Screen, ev tcell.Event) error {
	switch tev := ev.(type) {
	case *tcell.EventResize:
		screen.Sync()
		app.draw(screen)
	case *tcell.EventKey:
		return app.handleKey(tev)
	}
	return nil
}

func (app *Application) handleKey(ev *tcell.EventKey) error {
	switch {
	case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
		return ErrQuit
	case ev.Key() != tcell.KeyRune:
		return nil
	}

	switch ev.Rune() {
	case 'q', 'Q':
		return ErrQuit
	case 'u', 'U':
		app.startUpload()
	case 'z', 'Z':
		_ = app.doc.Undo()
	}
	return nil
}

// startUpload picks the next sample and dispatches it through the
// toolbar control.
func (app *Application) startUpload() {
	res := app.ext.Button().Click(context.Background())
	if res.Status == command.StatusError {
		app.logger.Error("sample upload", "error", res.Err)
	}
}

// Shutdown stops the loop and tears the subsystem down. Safe to call
// more than once and after Run has returned.
func (app *Application) Shutdown() {
	app.closeOnce.Do(func() {
		close(app.done)
		app.shutdown()
	})
}

// shutdown releases components in reverse bootstrap order.
func (app *Application) shutdown() {
	if app.ext != nil {
		app.ext.Close()
	}
	if app.bus != nil {
		_ = app.bus.Close()
	}
}

// IsRunning reports whether the main loop is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Bus returns the event bus.
func (app *Application) Bus() event.Bus {
	return app.bus
}

// Document returns the demo document.
func (app *Application) Document() *document.Memory {
	return app.doc
}

// Extension returns the attached upload subsystem.
func (app *Application) Extension() *fileupload.Extension {
	return app.ext
}
