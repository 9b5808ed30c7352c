// Package event provides the in-process publish/subscribe bus that
// ties the upload pipeline together. The coordinator publishes
// lifecycle events; progress presenters, asset recorders and API
// sessions subscribe without depending on each other.
//
// Delivery is synchronous and ordered. Publish invokes every handler
// whose pattern matches the event topic, in subscription order, and
// returns once all of them have run. Handler errors and panics are
// counted and reported to the bus hooks without stopping delivery.
// Handlers that need to do slow work should hand it off to their own
// goroutine.
//
// Components normally publish and subscribe through the typed helpers
// rather than the Bus directly:
//
//	bus := event.NewBus()
//	defer bus.Close()
//
//	pub := event.NewPublisher(bus, "filerepo")
//	_ = event.PublishEvent(ctx, pub, events.TopicUploadProgress,
//	    events.UploadProgress{UploadID: id, Percent: 42})
//
//	sub := event.NewSubscriber(bus)
//	defer sub.Close()
//	_, _ = event.SubscribePayload(sub, events.TopicUploadProgress,
//	    func(ctx context.Context, p events.UploadProgress) error {
//	        render(p)
//	        return nil
//	    })
//
// Patterns follow the topic package's wildcard rules: "upload.*"
// matches one trailing segment, "upload.**" a whole subtree. The
// events subpackage defines the concrete topics and payload types.
package event
