package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/filestorm/internal/event/topic"
)

// Metadata identifies a single event instance.
type Metadata struct {
	ID        string    // unique per event
	Timestamp time.Time // creation time, UTC
	Source    string    // component that produced the event
}

// Event pairs a typed payload with the topic it travels under. Events
// are value types; build them with NewEvent so they carry identity.
type Event[T any] struct {
	Topic    topic.Topic
	Payload  T
	Metadata Metadata
}

// NewEvent stamps payload with a fresh id and the current time.
func NewEvent[T any](t topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Topic:   t,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Source:    source,
		},
	}
}

// EventTopic returns the topic the event travels under.
func (e Event[T]) EventTopic() topic.Topic { return e.Topic }

// EventMetadata returns the event identity.
func (e Event[T]) EventMetadata() Metadata { return e.Metadata }

func (e Event[T]) payloadAny() any { return e.Payload }

// Carrier is satisfied by published values that reveal the topic they
// travel under. The bus can only route Carriers and Envelopes; other
// values are rejected at publish time.
type Carrier interface {
	EventTopic() topic.Topic
}

type stamped interface {
	EventMetadata() Metadata
}

type payloader interface {
	payloadAny() any
}

// Envelope is the type-erased view of an event, for code that handles
// events without knowing their payload type.
type Envelope struct {
	Topic    topic.Topic
	Payload  any
	Metadata Metadata
}

// ToEnvelope flattens any published value into an Envelope. Values
// that reveal no topic come back with a zero Topic and the value
// itself as the payload.
func ToEnvelope(v any) Envelope {
	switch ev := v.(type) {
	case Envelope:
		return ev
	case Carrier:
		env := Envelope{Topic: ev.EventTopic(), Payload: v}
		if p, ok := v.(payloader); ok {
			env.Payload = p.payloadAny()
		}
		if m, ok := v.(stamped); ok {
			env.Metadata = m.EventMetadata()
		}
		return env
	default:
		return Envelope{Payload: v}
	}
}
