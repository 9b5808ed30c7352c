package httpapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"

	"github.com/dshills/filestorm/internal/command"
	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/filerepo"
	"github.com/dshills/filestorm/internal/mimetype"
)

// ServerConfig tunes the HTTP surface. Zero values select defaults in
// NewServer.
type ServerConfig struct {
	// AuthToken is the bearer token required on /v1 routes. Empty
	// disables authentication.
	AuthToken string

	// MaxBodyBytes limits JSON request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// MaxUploadBytes limits multipart upload bodies. Defaults to 32 MiB.
	MaxUploadBytes int64

	// RateLimitMax is the number of requests allowed per window and
	// client. Zero disables rate limiting.
	RateLimitMax int

	// RateLimitWindow is the rate limit window. Defaults to one minute.
	RateLimitWindow time.Duration

	// Logger receives server logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server routes the document upload API.
type Server struct {
	hub          *Hub
	cfg          ServerConfig
	uploadSchema *jsonschema.Schema
	rateLimiter  *rateLimiter
	logger       *slog.Logger
}

type rateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string]rateEntry
}

type rateEntry struct {
	count   int
	resetAt time.Time
}

// NewServer creates a server over the given hub, applying config
// defaults and compiling the upload request schema.
func NewServer(hub *Hub, cfg ServerConfig) (*Server, error) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.RateLimitMax < 0 {
		cfg.RateLimitMax = 0
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schema, err := compileUploadSchema()
	if err != nil {
		return nil, err
	}

	var limiter *rateLimiter
	if cfg.RateLimitMax > 0 {
		limiter = &rateLimiter{
			window:  cfg.RateLimitWindow,
			max:     cfg.RateLimitMax,
			entries: map[string]rateEntry{},
		}
	}

	return &Server{
		hub:          hub,
		cfg:          cfg,
		uploadSchema: schema,
		rateLimiter:  limiter,
		logger:       logger,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" || parts[1] != "documents" || parts[2] == "" {
		writeError(w, http.StatusNotFound, "not_found", "route not found", getCorrelationID(r))
		return
	}
	docID := parts[2]

	var route string
	switch {
	case len(parts) == 3 && r.Method == http.MethodGet:
		route = "document"
	case len(parts) == 4 && parts[3] == "files" && r.Method == http.MethodPost:
		route = "upload"
	case len(parts) == 4 && parts[3] == "events" && r.Method == http.MethodGet:
		route = "events"
	default:
		writeError(w, http.StatusNotFound, "not_found", "route not found", getCorrelationID(r))
		return
	}

	if authErr := authorizeBearer(r.Header.Get("Authorization"), s.cfg.AuthToken); authErr != nil {
		writeError(w, authErr.status, authErr.code, authErr.message, getCorrelationID(r))
		return
	}

	if s.rateLimiter != nil {
		key := remoteHost(r) + "|" + docID
		if !s.rateLimiter.allow(key, time.Now().UTC()) {
			retryAfter := int(math.Ceil(s.rateLimiter.window.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded", getCorrelationID(r))
			return
		}
	}

	switch route {
	case "document":
		s.handleDocument(w, r, docID)
	case "upload":
		s.handleUpload(w, r, docID)
	case "events":
		s.handleEvents(w, r, docID)
	}
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, docID string) {
	sess, ok := s.hub.Session(docID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", ErrUnknownDocument.Error(), getCorrelationID(r))
		return
	}
	writeJSON(w, http.StatusOK, renderDocument(sess.Document()))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, docID string) {
	correlationID := getCorrelationID(r)

	var src filerepo.Source
	var ok bool
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		src, ok = s.readMultipartUpload(w, r, correlationID)
	} else {
		src, ok = s.readJSONUpload(w, r, correlationID)
	}
	if !ok {
		return
	}

	sess, err := s.hub.Open(docID)
	if err != nil {
		if errors.Is(err, ErrHubClosed) {
			writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error(), correlationID)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), correlationID)
		return
	}

	result := sess.Upload(r.Context(), src)
	if result.Status == command.StatusError {
		writeError(w, http.StatusInternalServerError, "internal_error", result.Err.Error(), correlationID)
		return
	}

	created := result.Created
	if created == nil {
		created = []string{}
	}
	skipped := result.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	writeJSON(w, http.StatusAccepted, struct {
		DocumentID string   `json:"documentId"`
		Created    []string `json:"created"`
		Skipped    []string `json:"skipped"`
	}{docID, created, skipped})
}

// readMultipartUpload extracts the "file" form field into a data-URI
// source the fetcher can materialize.
func (s *Server) readMultipartUpload(w http.ResponseWriter, r *http.Request, correlationID string) (filerepo.Source, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds configured limit", correlationID)
			return filerepo.Source{}, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart body", correlationID)
		return filerepo.Source{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing file field", correlationID)
		return filerepo.Source{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read file field", correlationID)
		return filerepo.Source{}, false
	}

	name := filepath.Base(header.Filename)
	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		if byExt, known := mimetype.ByExtension(name); known {
			mime = byExt
		}
	}

	return filerepo.Source{URI: dataURI(mime, data), Name: name, MIME: mime}, true
}

// readJSONUpload decodes and schema-validates a {name, dataUri} body.
func (s *Server) readJSONUpload(w http.ResponseWriter, r *http.Request, correlationID string) (filerepo.Source, bool) {
	body, ok := s.readRequestBody(w, r, correlationID)
	if !ok {
		return filerepo.Source{}, false
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body", correlationID)
		return filerepo.Source{}, false
	}
	if err := s.uploadSchema.Validate(inst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), correlationID)
		return filerepo.Source{}, false
	}

	return filerepo.Source{
		URI:  gjson.GetBytes(body, "dataUri").String(),
		Name: gjson.GetBytes(body, "name").String(),
	}, true
}

func (s *Server) readRequestBody(w http.ResponseWriter, r *http.Request, correlationID string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds configured limit", correlationID)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body", correlationID)
		return nil, false
	}
	return body, true
}

type documentResponse struct {
	ID     string          `json:"id"`
	Seq    uint64          `json:"seq"`
	Text   string          `json:"text"`
	Blocks []blockResponse `json:"blocks"`
}

type blockResponse struct {
	ID   string        `json:"id"`
	Runs []runResponse `json:"runs"`
}

type runResponse struct {
	ID    string            `json:"id"`
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// renderDocument flattens the live document, attributes included, so
// callers can watch upload bookkeeping move through anchor nodes.
func renderDocument(doc *document.Memory) documentResponse {
	blocks := doc.Blocks()
	out := documentResponse{
		ID:     doc.ID(),
		Seq:    doc.Seq(),
		Text:   doc.Text(),
		Blocks: make([]blockResponse, 0, len(blocks)),
	}
	for _, b := range blocks {
		rb := blockResponse{ID: b.ID, Runs: make([]runResponse, 0, len(b.Runs))}
		for _, run := range b.Runs {
			rb.Runs = append(rb.Runs, runResponse{
				ID:    string(run.ID),
				Text:  run.Text,
				Attrs: run.Attrs.Clone(),
			})
		}
		out.Blocks = append(out.Blocks, rb)
	}
	return out
}

func dataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func getCorrelationID(r *http.Request) string {
	return r.Header.Get("X-Correlation-Id")
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message, correlationID string) {
	payload := map[string]any{
		"code":    code,
		"message": message,
	}
	if correlationID != "" {
		payload["correlationId"] = correlationID
	}
	writeJSON(w, status, payload)
}

func (r *rateLimiter) allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || now.After(entry.resetAt) {
		r.entries[key] = rateEntry{
			count:   1,
			resetAt: now.Add(r.window),
		}
		return true
	}
	if entry.count >= r.max {
		return false
	}
	entry.count++
	r.entries[key] = entry
	return true
}
