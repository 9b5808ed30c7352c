package event

import "errors"

var (
	// ErrBusClosed reports a publish or subscribe on a closed bus.
	ErrBusClosed = errors.New("event bus closed")

	// ErrNoTopic reports a published value that reveals no topic to
	// route on.
	ErrNoTopic = errors.New("published value carries no topic")

	// ErrBadPattern reports a malformed subscription pattern.
	ErrBadPattern = errors.New("malformed topic pattern")

	// ErrNilHandler reports a subscription without a handler.
	ErrNilHandler = errors.New("nil handler")

	// ErrUnknownSubscription reports a cancel for a subscription the
	// bus does not hold.
	ErrUnknownSubscription = errors.New("unknown subscription")

	// ErrSubscriberClosed reports a subscribe through a closed
	// Subscriber.
	ErrSubscriberClosed = errors.New("subscriber closed")
)
