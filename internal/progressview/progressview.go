// Package progressview mirrors upload lifecycle events onto transient
// view decorations. It is purely reactive: it never touches the
// persisted document, only the presentation layer behind the Binder
// interface, and applying the same state twice is a no-op.
package progressview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/event/events"
	"github.com/dshills/filestorm/internal/filerepo"
)

// DefaultGlyphDelay is how long the completion glyph stays visible.
const DefaultGlyphDelay = 3000 * time.Millisecond

// Decoration is the transient visual state of one anchor node.
type Decoration struct {
	// Appearing marks the placeholder fade-in shown from read onward.
	Appearing bool

	// Bar shows the width-percent progress indicator.
	Bar bool

	// Percent is the bar width. Meaningful only while Bar is set.
	Percent int

	// CompleteGlyph shows the transient completion mark.
	CompleteGlyph bool
}

// Binder writes decorations to the view layer. Implementations must be
// safe for concurrent use and must not call back into the Presenter.
type Binder interface {
	// Apply sets the node's decoration, replacing any previous one.
	Apply(node document.NodeID, d Decoration)

	// Clear removes the node's decoration.
	Clear(node document.NodeID)
}

// Presenter subscribes to upload lifecycle events and drives a Binder.
// One presenter serves one document view.
type Presenter struct {
	binder Binder
	logger *slog.Logger
	sub    *event.Subscriber
	delay  time.Duration

	mu     sync.Mutex
	nodes  map[string]document.NodeID
	decos  map[document.NodeID]Decoration
	timers map[document.NodeID]*time.Timer
	closed bool
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithLogger sets the presenter logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithGlyphDelay overrides how long the completion glyph stays visible.
func WithGlyphDelay(d time.Duration) Option {
	return func(p *Presenter) {
		if d > 0 {
			p.delay = d
		}
	}
}

// New creates a presenter and subscribes it to the upload topics.
func New(bus event.Bus, binder Binder, opts ...Option) (*Presenter, error) {
	p := &Presenter{
		binder: binder,
		logger: slog.Default(),
		sub:    event.NewSubscriber(bus),
		delay:  DefaultGlyphDelay,
		nodes:  make(map[string]document.NodeID),
		decos:  make(map[document.NodeID]Decoration),
		timers: make(map[document.NodeID]*time.Timer),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.subscribe(); err != nil {
		p.sub.Close()
		return nil, err
	}
	return p, nil
}

func (p *Presenter) subscribe() error {
	if _, err := event.SubscribePayload(p.sub, events.TopicUploadStatusChanged,
		func(_ context.Context, ev events.UploadStatusChanged) error {
			p.onStatus(ev)
			return nil
		}); err != nil {
		return err
	}
	if _, err := event.SubscribePayload(p.sub, events.TopicUploadProgress,
		func(_ context.Context, ev events.UploadProgress) error {
			p.onProgress(ev)
			return nil
		}); err != nil {
		return err
	}
	if _, err := event.SubscribePayload(p.sub, events.TopicUploadComplete,
		func(_ context.Context, ev events.UploadComplete) error {
			p.onComplete(ev.UploadID, document.NodeID(ev.NodeID))
			return nil
		}); err != nil {
		return err
	}
	if _, err := event.SubscribePayload(p.sub, events.TopicUploadFailed,
		func(_ context.Context, ev events.UploadFailed) error {
			p.forget(ev.UploadID)
			return nil
		}); err != nil {
		return err
	}
	_, err := event.SubscribePayload(p.sub, events.TopicUploadAborted,
		func(_ context.Context, ev events.UploadAborted) error {
			p.forget(ev.UploadID)
			return nil
		})
	return err
}

// Close unsubscribes, stops pending glyph timers, and scrubs every
// decoration it owns from the view.
func (p *Presenter) Close() {
	p.sub.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	for node, t := range p.timers {
		t.Stop()
		delete(p.timers, node)
	}
	for node := range p.decos {
		delete(p.decos, node)
		p.binder.Clear(node)
	}
	p.nodes = make(map[string]document.NodeID)
}

// Decorated returns the number of nodes currently carrying a decoration.
func (p *Presenter) Decorated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.decos)
}

func (p *Presenter) onStatus(ev events.UploadStatusChanged) {
	st, ok := filerepo.ParseStatus(ev.Status)
	if !ok {
		p.logger.Warn("unknown upload status", "status", ev.Status)
		return
	}

	node := document.NodeID(ev.NodeID)
	switch st {
	case filerepo.StatusReading:
		p.apply(ev.UploadID, node, Decoration{Appearing: true})
	case filerepo.StatusUploading:
		p.mu.Lock()
		d := Decoration{Appearing: true, Bar: true}
		if cur, ok := p.nodes[ev.UploadID]; ok {
			d.Percent = p.decos[cur].Percent
		}
		p.applyLocked(ev.UploadID, node, d)
		p.mu.Unlock()
	case filerepo.StatusComplete:
		p.onComplete(ev.UploadID, node)
	case filerepo.StatusError, filerepo.StatusAborted:
		p.forget(ev.UploadID)
	}
}

func (p *Presenter) onProgress(ev events.UploadProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, ok := p.nodes[ev.UploadID]
	if !ok {
		return
	}
	d := p.decos[cur]
	if !d.Bar {
		d = Decoration{Appearing: true, Bar: true}
	}
	if ev.Percent > d.Percent {
		d.Percent = ev.Percent
	}

	node := document.NodeID(ev.NodeID)
	if node == "" {
		node = cur
	}
	p.applyLocked(ev.UploadID, node, d)
}

// onComplete swaps the decoration to the completion glyph and arms the
// removal timer. A glyph already showing keeps its original deadline.
func (p *Presenter) onComplete(uploadID string, node document.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	if cur, ok := p.nodes[uploadID]; ok && node == "" {
		node = cur
	}
	if node == "" {
		return
	}

	d := Decoration{Percent: 100, CompleteGlyph: true}
	if !p.applyLocked(uploadID, node, d) {
		return
	}
	if t, ok := p.timers[node]; ok {
		t.Stop()
	}
	p.timers[node] = time.AfterFunc(p.delay, func() {
		p.expire(node)
	})
}

// apply re-points and applies under the presenter lock.
func (p *Presenter) apply(uploadID string, node document.NodeID, d Decoration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(uploadID, node, d)
}

// applyLocked moves the upload's decoration to node and applies d,
// skipping binder calls when nothing changed. Reports whether the
// decoration changed. Caller holds p.mu.
func (p *Presenter) applyLocked(uploadID string, node document.NodeID, d Decoration) bool {
	if p.closed || node == "" {
		return false
	}

	if old, ok := p.nodes[uploadID]; ok && old != node {
		p.clearNodeLocked(old)
	}
	p.nodes[uploadID] = node

	if cur, ok := p.decos[node]; ok && cur == d {
		return false
	}
	p.decos[node] = d
	p.binder.Apply(node, d)
	return true
}

// forget clears the upload's decoration and releases its bookkeeping.
func (p *Presenter) forget(uploadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	if node, ok := p.nodes[uploadID]; ok {
		p.clearNodeLocked(node)
		delete(p.nodes, uploadID)
	}
}

// expire removes the completion glyph when its timer fires.
func (p *Presenter) expire(node document.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	delete(p.timers, node)
	if _, ok := p.decos[node]; !ok {
		return
	}
	delete(p.decos, node)
	p.binder.Clear(node)

	for id, n := range p.nodes {
		if n == node {
			delete(p.nodes, id)
		}
	}
}

// clearNodeLocked removes a node's decoration and stops any pending
// glyph timer. Caller holds p.mu.
func (p *Presenter) clearNodeLocked(node document.NodeID) {
	if t, ok := p.timers[node]; ok {
		t.Stop()
		delete(p.timers, node)
	}
	if _, ok := p.decos[node]; !ok {
		return
	}
	delete(p.decos, node)
	p.binder.Clear(node)
}
