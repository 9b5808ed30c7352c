package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/filestorm/internal/event/topic"
)

// Handler consumes published events. The bus invokes handlers from the
// publishing goroutine, so implementations must be safe for concurrent
// use when events come from more than one goroutine.
type Handler interface {
	Handle(ctx context.Context, ev any) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev any) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev any) error { return f(ctx, ev) }

// Filter decides whether a subscription wants a particular event.
type Filter func(ev any) bool

// Stats is a point-in-time snapshot of bus activity.
type Stats struct {
	Published         uint64
	Delivered         uint64
	HandlerErrors     uint64
	ActiveSubscribers int
}

// Bus routes published values to pattern subscriptions. Delivery is
// synchronous and ordered: Publish runs every matching handler, in
// subscription order, before returning.
type Bus interface {
	// Publish routes ev to every subscription whose pattern matches
	// the event's topic. Handler errors and panics are counted and
	// reported to the bus hooks; they never stop delivery to the
	// remaining subscriptions.
	Publish(ctx context.Context, ev any) error

	// Subscribe registers h for events matching pattern.
	Subscribe(pattern topic.Topic, h Handler, opts ...SubscribeOption) (*Subscription, error)

	// Unsubscribe removes a subscription returned by Subscribe.
	Unsubscribe(sub *Subscription) error

	// Stats reports current counters.
	Stats() Stats

	// Close drops all subscriptions and rejects further publishes
	// and subscribes. Closing twice is a no-op.
	Close() error
}

// Subscription is one registered handler on a bus. It stays live until
// cancelled or the bus closes.
type Subscription struct {
	id      string
	pattern topic.Topic
	handler Handler
	filter  Filter
	once    bool

	owner    *bus
	fired    atomic.Bool
	detached atomic.Bool
}

// ID returns the unique subscription id.
func (s *Subscription) ID() string { return s.id }

// Pattern returns the topic pattern the subscription listens on.
func (s *Subscription) Pattern() topic.Topic { return s.pattern }

// Active reports whether the subscription is still registered.
func (s *Subscription) Active() bool { return !s.detached.Load() }

// Cancel removes the subscription from its bus. Cancelling twice is a
// no-op.
func (s *Subscription) Cancel() {
	if s.owner != nil {
		_ = s.owner.Unsubscribe(s)
	}
}

// SubscribeOption adjusts a single subscription.
type SubscribeOption func(*Subscription)

// WithFilter delivers only events f accepts.
func WithFilter(f Filter) SubscribeOption {
	return func(s *Subscription) { s.filter = f }
}

// WithOnce cancels the subscription after its first delivery.
func WithOnce() SubscribeOption {
	return func(s *Subscription) { s.once = true }
}

// BusOption adjusts bus construction.
type BusOption func(*bus)

// WithErrorHook observes handler errors. The hook runs inline on the
// publishing goroutine.
func WithErrorHook(hook func(ev any, err error)) BusOption {
	return func(b *bus) { b.errHook = hook }
}

// WithPanicHook observes recovered handler panics. Without a hook a
// panic is counted as a handler error and swallowed.
func WithPanicHook(hook func(ev any, recovered any)) BusOption {
	return func(b *bus) { b.panicHook = hook }
}

type bus struct {
	errHook   func(ev any, err error)
	panicHook func(ev any, recovered any)

	mu     sync.RWMutex
	subs   []*Subscription
	closed bool

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewBus returns an empty synchronous bus.
func NewBus(opts ...BusOption) Bus {
	b := &bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *bus) Publish(ctx context.Context, ev any) error {
	t := ToEnvelope(ev).Topic
	if t == "" {
		return ErrNoTopic
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	var matched []*Subscription
	for _, sub := range b.subs {
		if t.Matches(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	b.published.Add(1)
	for _, sub := range matched {
		b.deliver(ctx, sub, ev)
	}
	return nil
}

// deliver runs one handler with panic isolation, so a broken
// subscriber cannot take down the publisher.
func (b *bus) deliver(ctx context.Context, sub *Subscription, ev any) {
	if !sub.Active() {
		return
	}
	if sub.filter != nil && !sub.filter(ev) {
		return
	}
	if sub.once {
		if !sub.fired.CompareAndSwap(false, true) {
			return
		}
		defer sub.Cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			if b.panicHook != nil {
				b.panicHook(ev, r)
			}
		}
	}()

	if err := sub.handler.Handle(ctx, ev); err != nil {
		b.failed.Add(1)
		if b.errHook != nil {
			b.errHook(ev, err)
		}
		return
	}
	b.delivered.Add(1)
}

func (b *bus) Subscribe(pattern topic.Topic, h Handler, opts ...SubscribeOption) (*Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}

	sub := &Subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: h,
		owner:   b,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	b.subs = append(b.subs, sub)
	return sub, nil
}

func (b *bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrUnknownSubscription
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			sub.detached.Store(true)
			return nil
		}
	}
	return ErrUnknownSubscription
}

func (b *bus) Stats() Stats {
	b.mu.RLock()
	active := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		Published:         b.published.Load(),
		Delivered:         b.delivered.Load(),
		HandlerErrors:     b.failed.Load(),
		ActiveSubscribers: active,
	}
}

func (b *bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, sub := range b.subs {
		sub.detached.Store(true)
	}
	b.subs = nil
	return nil
}
