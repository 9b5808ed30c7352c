package event

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/filestorm/internal/event/topic"
)

func TestPublisher_StampsSource(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var source string
	sub := NewSubscriber(b)
	defer sub.Close()
	if _, err := sub.SubscribeFunc("upload.complete", func(_ context.Context, ev any) error {
		source = ToEnvelope(ev).Metadata.Source
		return nil
	}); err != nil {
		t.Fatalf("SubscribeFunc() error = %v", err)
	}

	pub := NewPublisher(b, "coordinator")
	if err := PublishEvent(context.Background(), pub, topic.Topic("upload.complete"), ping{N: 1}); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	if source != "coordinator" {
		t.Errorf("event source = %q, want coordinator", source)
	}
	if got := pub.Source(); got != "coordinator" {
		t.Errorf("Source() = %q, want coordinator", got)
	}
}

func TestSubscribePayload_TypedDelivery(t *testing.T) {
	b := NewBus()
	defer b.Close()
	pub := NewPublisher(b, "test")

	sub := NewSubscriber(b)
	defer sub.Close()

	var got []int
	if _, err := SubscribePayload(sub, topic.Topic("upload.progress"), func(_ context.Context, p ping) error {
		got = append(got, p.N)
		return nil
	}); err != nil {
		t.Fatalf("SubscribePayload() error = %v", err)
	}

	if err := PublishEvent(context.Background(), pub, topic.Topic("upload.progress"), ping{N: 10}); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}
	// Same topic, different payload type: skipped, not an error.
	if err := PublishEvent(context.Background(), pub, topic.Topic("upload.progress"), "free-form"); err != nil {
		t.Fatalf("PublishEvent(string) error = %v", err)
	}

	if len(got) != 1 || got[0] != 10 {
		t.Errorf("typed deliveries = %v, want [10]", got)
	}
}

func TestSubscribePayload_NilHandler(t *testing.T) {
	b := NewBus()
	defer b.Close()

	sub := NewSubscriber(b)
	defer sub.Close()

	if _, err := SubscribePayload[ping](sub, "upload.progress", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("SubscribePayload(nil) error = %v, want ErrNilHandler", err)
	}
}

func TestPublisher_PublishUntyped(t *testing.T) {
	b := NewBus()
	defer b.Close()

	sub := NewSubscriber(b)
	defer sub.Close()

	var got string
	if _, err := SubscribePayload(sub, topic.Topic("notify.warning"), func(_ context.Context, s string) error {
		got = s
		return nil
	}); err != nil {
		t.Fatalf("SubscribePayload() error = %v", err)
	}

	pub := NewPublisher(b, "notify")
	if err := pub.Publish(context.Background(), "notify.warning", "disk full"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if got != "disk full" {
		t.Errorf("payload = %q, want disk full", got)
	}
}

func TestSubscriber_CloseCancelsAll(t *testing.T) {
	b := NewBus()
	defer b.Close()

	sub := NewSubscriber(b)
	for _, pattern := range []topic.Topic{"upload.complete", "upload.failed"} {
		if _, err := sub.SubscribeFunc(pattern, func(context.Context, any) error { return nil }); err != nil {
			t.Fatalf("SubscribeFunc(%s) error = %v", pattern, err)
		}
	}
	if n := b.Stats().ActiveSubscribers; n != 2 {
		t.Fatalf("ActiveSubscribers = %d, want 2", n)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	if n := b.Stats().ActiveSubscribers; n != 0 {
		t.Errorf("ActiveSubscribers after Close = %d, want 0", n)
	}
	if _, err := sub.SubscribeFunc("upload.complete", func(context.Context, any) error { return nil }); !errors.Is(err, ErrSubscriberClosed) {
		t.Errorf("SubscribeFunc() after Close error = %v, want ErrSubscriberClosed", err)
	}
}
