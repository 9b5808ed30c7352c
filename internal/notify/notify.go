// Package notify delivers user-facing notifications. The upload pipeline
// raises warnings for declared failures; hosts decide how to present them.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/event/events"
)

// Notifier raises user-visible notifications.
type Notifier interface {
	// Warning reports a non-fatal failure the user should see. kv are
	// alternating key/value pairs of structured context.
	Warning(ctx context.Context, title, message string, kv ...any)
}

// SlogNotifier logs warnings and republishes them on the event bus so
// view layers can render them.
type SlogNotifier struct {
	logger *slog.Logger
	pub    *event.Publisher
	docID  string
}

// SlogOption configures a SlogNotifier.
type SlogOption func(*SlogNotifier)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) SlogOption {
	return func(n *SlogNotifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithBus republishes warnings as TopicNotifyWarning events.
func WithBus(bus event.Bus) SlogOption {
	return func(n *SlogNotifier) {
		if bus != nil {
			n.pub = event.NewPublisher(bus, "notify")
		}
	}
}

// WithDocumentID stamps published warnings with a document id.
func WithDocumentID(id string) SlogOption {
	return func(n *SlogNotifier) {
		n.docID = id
	}
}

// NewSlog creates a slog-backed notifier.
func NewSlog(opts ...SlogOption) *SlogNotifier {
	n := &SlogNotifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Warning implements the Notifier interface.
func (n *SlogNotifier) Warning(ctx context.Context, title, message string, kv ...any) {
	args := append([]any{"title", title}, kv...)
	n.logger.WarnContext(ctx, message, args...)

	if n.pub != nil {
		_ = event.PublishEvent(ctx, n.pub, events.TopicNotifyWarning, events.NotifyWarning{
			Title:      title,
			Message:    message,
			DocumentID: n.docID,
		})
	}
}

// Captured is one recorded notification.
type Captured struct {
	Title   string
	Message string
	KV      []any
}

// Capture records notifications for tests.
type Capture struct {
	mu       sync.Mutex
	warnings []Captured
}

// NewCapture creates an empty recorder.
func NewCapture() *Capture {
	return &Capture{}
}

// Warning implements the Notifier interface.
func (c *Capture) Warning(_ context.Context, title, message string, kv ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, Captured{Title: title, Message: message, KV: kv})
}

// Warnings returns the recorded notifications in order.
func (c *Capture) Warnings() []Captured {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Captured, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Len returns the number of recorded notifications.
func (c *Capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}
