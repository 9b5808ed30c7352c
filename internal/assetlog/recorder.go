package assetlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/event/events"
)

// Recorder mirrors upload completions from the bus into a backend.
type Recorder struct {
	backend Backend
	sub     *event.Subscriber
	logger  *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the recorder's logger.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder subscribes the backend to upload completions on the bus.
// The recorder does not own the backend; the caller closes it.
func NewRecorder(bus event.Bus, backend Backend, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		backend: backend,
		sub:     event.NewSubscriber(bus),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if _, err := event.SubscribePayload(r.sub, events.TopicUploadComplete, r.onComplete); err != nil {
		_ = r.sub.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) onComplete(ctx context.Context, ev events.UploadComplete) error {
	a := Asset{
		ID:         ev.UploadID,
		DocumentID: ev.DocumentID,
		Name:       ev.Filename,
		MIME:       ev.MIME,
		Size:       ev.Size,
		URL:        ev.URL,
		UploadedAt: time.Now().UTC(),
	}
	if err := r.backend.Record(ctx, a); err != nil {
		r.logger.Error("asset record failed", "upload_id", ev.UploadID, "error", err)
		return err
	}
	r.logger.Debug("asset recorded", "upload_id", ev.UploadID, "document_id", ev.DocumentID, "url", ev.URL)
	return nil
}

// Close detaches the recorder from the bus.
func (r *Recorder) Close() error {
	return r.sub.Close()
}
