package event

import (
	"context"
	"sync"

	"github.com/dshills/filestorm/internal/event/topic"
)

// Publisher stamps outgoing events with a fixed source name, so
// components do not repeat it on every publish.
type Publisher struct {
	bus    Bus
	source string
}

// NewPublisher returns a Publisher whose events carry source in their
// metadata.
func NewPublisher(bus Bus, source string) *Publisher {
	return &Publisher{bus: bus, source: source}
}

// Source returns the name stamped on published events.
func (p *Publisher) Source() string { return p.source }

// Publish sends an untyped payload under t. Use PublishEvent when the
// payload type is known.
func (p *Publisher) Publish(ctx context.Context, t topic.Topic, payload any) error {
	return p.bus.Publish(ctx, NewEvent(t, payload, p.source))
}

// PublishEvent builds a typed event stamped with p's source and
// publishes it on p's bus. It is a function rather than a method so
// the payload type can be a type parameter.
func PublishEvent[T any](ctx context.Context, p *Publisher, t topic.Topic, payload T) error {
	return p.bus.Publish(ctx, NewEvent(t, payload, p.source))
}

// Subscriber tracks the subscriptions a component makes so they can be
// cancelled together when the component shuts down.
type Subscriber struct {
	bus Bus

	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewSubscriber returns a Subscriber registering on bus.
func NewSubscriber(bus Bus) *Subscriber {
	return &Subscriber{bus: bus}
}

// Subscribe registers h on the bus and remembers the subscription.
func (s *Subscriber) Subscribe(pattern topic.Topic, h Handler, opts ...SubscribeOption) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSubscriberClosed
	}

	sub, err := s.bus.Subscribe(pattern, h, opts...)
	if err != nil {
		return nil, err
	}
	s.subs = append(s.subs, sub)
	return sub, nil
}

// SubscribeFunc registers f for events matching pattern.
func (s *Subscriber) SubscribeFunc(pattern topic.Topic, f func(ctx context.Context, ev any) error) (*Subscription, error) {
	if f == nil {
		return nil, ErrNilHandler
	}
	return s.Subscribe(pattern, HandlerFunc(f))
}

// Close cancels every subscription made through the subscriber.
// Closing twice is a no-op.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.subs = nil
	return nil
}

// SubscribePayload registers handler for payloads of type T published
// under t. Events on the topic whose payload is not a T are skipped.
func SubscribePayload[T any](s *Subscriber, t topic.Topic, handler func(ctx context.Context, payload T) error) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	return s.SubscribeFunc(t, func(ctx context.Context, ev any) error {
		payload, ok := ToEnvelope(ev).Payload.(T)
		if !ok {
			return nil
		}
		return handler(ctx, payload)
	})
}
