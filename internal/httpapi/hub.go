// Package httpapi exposes the upload subsystem over HTTP for headless
// hosts: document sessions are created on demand, files are posted into
// them, and lifecycle events stream out over a websocket.
package httpapi

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dshills/filestorm/internal/command"
	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/event"
	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/fileupload"
	"github.com/dshills/filestorm/internal/notify"
)

// Hub hosts one document session per document id and attaches the
// upload extension to each. Sessions share the hub's bus and adapter.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	bus     event.Bus
	adapter filerepo.Adapter
	cfg     fileupload.Config
	logger  *slog.Logger
}

// Session is one hosted document with its attached extension.
type Session struct {
	id  string
	doc *document.Memory
	ext *fileupload.Extension
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithAdapter sets the upload adapter shared by all sessions. Without
// one, posted files are skipped the way the command skips them.
func WithAdapter(a filerepo.Adapter) HubOption {
	return func(h *Hub) {
		h.adapter = a
	}
}

// WithTypes sets the accepted file-type tokens for all sessions.
func WithTypes(types []string) HubOption {
	return func(h *Hub) {
		if len(types) > 0 {
			h.cfg.Types = append([]string(nil), types...)
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates an empty hub publishing on the given bus.
func NewHub(bus event.Bus, opts ...HubOption) *Hub {
	h := &Hub{
		sessions: make(map[string]*Session),
		bus:      bus,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open returns the session for a document id, creating and attaching
// one when none exists yet.
func (h *Hub) Open(id string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if sess, ok := h.sessions[id]; ok {
		return sess, nil
	}

	doc := document.NewMemory(document.WithDocumentID(id))
	ext, err := fileupload.Attach(fileupload.Host{
		Document: doc,
		Bus:      h.bus,
		Adapter:  h.adapter,
	}, h.cfg,
		fileupload.WithLogger(h.logger),
		fileupload.WithNotifier(notify.NewSlog(
			notify.WithLogger(h.logger),
			notify.WithBus(h.bus),
			notify.WithDocumentID(id),
		)),
	)
	if err != nil {
		return nil, err
	}

	sess := &Session{id: id, doc: doc, ext: ext}
	h.sessions[id] = sess
	h.logger.Info("document session opened", "document", id)
	return sess, nil
}

// Session returns the session for a document id, if one is hosted.
func (h *Hub) Session(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sess, ok := h.sessions[id]
	return sess, ok
}

// Len returns the number of hosted sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Bus returns the bus sessions publish on.
func (h *Hub) Bus() event.Bus {
	return h.bus
}

// Close detaches every session. Outstanding uploads are aborted by the
// extensions; further Open calls fail with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		sessions = append(sessions, sess)
	}
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, sess := range sessions {
		sess.ext.Close()
	}
}

// ID returns the document id.
func (s *Session) ID() string {
	return s.id
}

// Document returns the hosted document.
func (s *Session) Document() *document.Memory {
	return s.doc
}

// Extension returns the attached upload extension.
func (s *Session) Extension() *fileupload.Extension {
	return s.ext
}

// Upload runs the upload command against the session document.
func (s *Session) Upload(ctx context.Context, files ...filerepo.Source) command.Result {
	return s.ext.Registry().Execute(ctx, command.NameFileUpload, command.Request{Files: files})
}
