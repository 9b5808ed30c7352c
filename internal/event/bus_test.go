package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dshills/filestorm/internal/event/topic"
)

type ping struct {
	N int
}

func publishPing(t *testing.T, b Bus, top topic.Topic, n int) {
	t.Helper()

	if err := b.Publish(context.Background(), NewEvent(top, ping{N: n}, "test")); err != nil {
		t.Fatalf("Publish(%s) error = %v", top, err)
	}
}

func TestBus_PublishRoutesByPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern topic.Topic
		topic   topic.Topic
		want    bool
	}{
		{"exact", "upload.complete", "upload.complete", true},
		{"exact mismatch", "upload.complete", "upload.failed", false},
		{"single wildcard", "upload.*", "upload.complete", true},
		{"single wildcard depth", "upload.*", "upload.status.changed", false},
		{"subtree", "upload.**", "upload.status.changed", true},
		{"subtree foreign root", "upload.**", "notify.warning", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBus()
			defer b.Close()

			var got atomic.Int32
			_, err := b.Subscribe(tt.pattern, HandlerFunc(func(context.Context, any) error {
				got.Add(1)
				return nil
			}))
			if err != nil {
				t.Fatalf("Subscribe(%s) error = %v", tt.pattern, err)
			}

			publishPing(t, b, tt.topic, 1)

			if delivered := got.Load() == 1; delivered != tt.want {
				t.Errorf("pattern %q delivered topic %q: %v, want %v", tt.pattern, tt.topic, delivered, tt.want)
			}
		})
	}
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		_, err := b.Subscribe("order.test", HandlerFunc(func(context.Context, any) error {
			order = append(order, i)
			return nil
		}))
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}

	publishPing(t, b, "order.test", 1)

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("delivery order = %v, want [0 1 2]", order)
	}
}

func TestBus_PublishRejectsTopiclessValues(t *testing.T) {
	b := NewBus()
	defer b.Close()

	if err := b.Publish(context.Background(), "just a string"); !errors.Is(err, ErrNoTopic) {
		t.Errorf("Publish(string) error = %v, want ErrNoTopic", err)
	}
}

func TestBus_SubscribeValidation(t *testing.T) {
	b := NewBus()
	defer b.Close()

	if _, err := b.Subscribe("upload.complete", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrNilHandler", err)
	}

	noop := HandlerFunc(func(context.Context, any) error { return nil })
	for _, bad := range []topic.Topic{"", "upload..complete", "upload.**.changed"} {
		if _, err := b.Subscribe(bad, noop); !errors.Is(err, ErrBadPattern) {
			t.Errorf("Subscribe(%q) error = %v, want ErrBadPattern", bad, err)
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got atomic.Int32
	sub, err := b.Subscribe("upload.complete", HandlerFunc(func(context.Context, any) error {
		got.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publishPing(t, b, "upload.complete", 1)
	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	publishPing(t, b, "upload.complete", 2)

	if got.Load() != 1 {
		t.Errorf("deliveries = %d, want 1", got.Load())
	}
	if sub.Active() {
		t.Error("subscription still active after Unsubscribe")
	}
	if err := b.Unsubscribe(sub); !errors.Is(err, ErrUnknownSubscription) {
		t.Errorf("second Unsubscribe() error = %v, want ErrUnknownSubscription", err)
	}
}

func TestBus_OnceDeliversExactlyOnce(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got atomic.Int32
	_, err := b.Subscribe("upload.complete", HandlerFunc(func(context.Context, any) error {
		got.Add(1)
		return nil
	}), WithOnce())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publishPing(t, b, "upload.complete", 1)
	publishPing(t, b, "upload.complete", 2)

	if got.Load() != 1 {
		t.Errorf("deliveries = %d, want 1", got.Load())
	}
	if n := b.Stats().ActiveSubscribers; n != 0 {
		t.Errorf("ActiveSubscribers = %d, want 0 after once fired", n)
	}
}

func TestBus_FilterSkipsRejectedEvents(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got []int
	_, err := b.Subscribe("upload.progress", HandlerFunc(func(_ context.Context, ev any) error {
		got = append(got, ToEnvelope(ev).Payload.(ping).N)
		return nil
	}), WithFilter(func(ev any) bool {
		p, ok := ToEnvelope(ev).Payload.(ping)
		return ok && p.N%2 == 0
	}))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for n := 1; n <= 4; n++ {
		publishPing(t, b, "upload.progress", n)
	}

	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("filtered deliveries = %v, want [2 4]", got)
	}
}

func TestBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	boom := errors.New("boom")
	var hookErr error
	b := NewBus(WithErrorHook(func(_ any, err error) { hookErr = err }))
	defer b.Close()

	var secondRan bool
	mustSubscribe := func(h HandlerFunc) {
		t.Helper()
		if _, err := b.Subscribe("upload.failed", h); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}
	mustSubscribe(func(context.Context, any) error { return boom })
	mustSubscribe(func(context.Context, any) error { secondRan = true; return nil })

	publishPing(t, b, "upload.failed", 1)

	if !secondRan {
		t.Error("handler after the failing one did not run")
	}
	if !errors.Is(hookErr, boom) {
		t.Errorf("error hook got %v, want boom", hookErr)
	}
	if n := b.Stats().HandlerErrors; n != 1 {
		t.Errorf("HandlerErrors = %d, want 1", n)
	}
}

func TestBus_PanicIsolation(t *testing.T) {
	var recovered any
	b := NewBus(WithPanicHook(func(_ any, r any) { recovered = r }))
	defer b.Close()

	var secondRan bool
	if _, err := b.Subscribe("upload.aborted", HandlerFunc(func(context.Context, any) error {
		panic("handler exploded")
	})); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := b.Subscribe("upload.aborted", HandlerFunc(func(context.Context, any) error {
		secondRan = true
		return nil
	})); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publishPing(t, b, "upload.aborted", 1)

	if recovered != "handler exploded" {
		t.Errorf("panic hook got %v, want the panic value", recovered)
	}
	if !secondRan {
		t.Error("handler after the panicking one did not run")
	}
}

func TestBus_Close(t *testing.T) {
	b := NewBus()

	sub, err := b.Subscribe("upload.complete", HandlerFunc(func(context.Context, any) error { return nil }))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	if sub.Active() {
		t.Error("subscription still active after Close")
	}
	if err := b.Publish(context.Background(), NewEvent(topic.Topic("upload.complete"), ping{}, "test")); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrBusClosed", err)
	}
	if _, err := b.Subscribe("upload.complete", HandlerFunc(func(context.Context, any) error { return nil })); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Subscribe() after Close error = %v, want ErrBusClosed", err)
	}
}

func TestBus_Stats(t *testing.T) {
	b := NewBus()
	defer b.Close()

	if _, err := b.Subscribe("upload.**", HandlerFunc(func(context.Context, any) error { return nil })); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publishPing(t, b, "upload.complete", 1)
	publishPing(t, b, "upload.status.changed", 2)

	got := b.Stats()
	if got.Published != 2 {
		t.Errorf("Published = %d, want 2", got.Published)
	}
	if got.Delivered != 2 {
		t.Errorf("Delivered = %d, want 2", got.Delivered)
	}
	if got.ActiveSubscribers != 1 {
		t.Errorf("ActiveSubscribers = %d, want 1", got.ActiveSubscribers)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got atomic.Int64
	if _, err := b.Subscribe("upload.progress", HandlerFunc(func(context.Context, any) error {
		got.Add(1)
		return nil
	})); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	const workers, each = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < each; n++ {
				_ = b.Publish(context.Background(), NewEvent(topic.Topic("upload.progress"), ping{N: n}, "test"))
			}
		}()
	}
	wg.Wait()

	if got.Load() != workers*each {
		t.Errorf("deliveries = %d, want %d", got.Load(), workers*each)
	}
}
