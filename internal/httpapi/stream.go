package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"nhooyr.io/websocket"

	"github.com/dshills/filestorm/internal/event"
)

// streamWriteTimeout bounds a single websocket frame write so a stalled
// client cannot park the stream goroutine.
const streamWriteTimeout = 5 * time.Second

// streamBuffer is the per-connection frame backlog. Frames beyond it are
// dropped rather than blocking publishers.
const streamBuffer = 64

// handleEvents upgrades to a websocket and relays the document's upload
// lifecycle events as JSON frames until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, docID string) {
	sess, err := s.hub.Open(docID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error(), getCorrelationID(r))
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("websocket accept", "document", docID, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "event stream closed")

	// The stream is write-only; CloseRead surfaces client disconnects
	// through context cancellation.
	ctx := conn.CloseRead(r.Context())

	frames := make(chan []byte, streamBuffer)
	sub := event.NewSubscriber(s.hub.Bus())
	defer sub.Close()

	_, err = sub.SubscribeFunc("upload.**", func(_ context.Context, ev any) error {
		frame, ok := uploadFrame(ev, sess.ID())
		if !ok {
			return nil
		}
		select {
		case frames <- frame:
		default:
		}
		return nil
	})
	if err != nil {
		s.logger.Error("subscribe event stream", "document", docID, "error", err)
		return
	}

	s.logger.Debug("event stream opened", "document", docID)
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case frame := <-frames:
			if err := writeFrame(ctx, conn, frame); err != nil {
				s.logger.Debug("event stream closed", "document", docID, "error", err)
				return
			}
		}
	}
}

// uploadFrame renders one lifecycle event as a wire frame, filtered to
// the watched document. The payload is embedded as published; the outer
// keys are the stream's own.
func uploadFrame(ev any, docID string) ([]byte, bool) {
	env := event.ToEnvelope(ev)
	if env.Topic == "" {
		return nil, false
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, false
	}
	payload := gjson.GetBytes(raw, "Payload")
	if !payload.Exists() {
		return nil, false
	}
	if gjson.GetBytes(raw, "Payload.DocumentID").String() != docID {
		return nil, false
	}

	frame := []byte(`{}`)
	frame, _ = sjson.SetBytes(frame, "type", env.Topic.String())
	frame, _ = sjson.SetBytes(frame, "id", env.Metadata.ID)
	frame, _ = sjson.SetBytes(frame, "ts", env.Metadata.Timestamp.UTC().Format(time.RFC3339Nano))
	frame, _ = sjson.SetRawBytes(frame, "event", []byte(payload.Raw))
	return frame, true
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}
