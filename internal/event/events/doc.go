// Package events declares the concrete topics and payload types that
// travel over the bus: the upload lifecycle (task creation, status
// transitions, transfer progress, terminal outcomes) and user-facing
// notifications.
//
// Topic names are dot-separated, most specific segment last, so
// subscription patterns can peel off subtrees: "upload.**" captures
// the whole upload lifecycle, "upload.*" only its two-segment events.
//
// Publishing pairs a topic constant with its payload struct:
//
//	_ = event.PublishEvent(ctx, pub, events.TopicUploadProgress,
//	    events.UploadProgress{
//	        UploadID: id,
//	        NodeID:   nodeID,
//	        Percent:  42,
//	    })
//
// and event.SubscribePayload delivers the payload back with its static
// type intact. Keep topic and payload in the same file when adding an
// event so the pairing stays visible.
package events
