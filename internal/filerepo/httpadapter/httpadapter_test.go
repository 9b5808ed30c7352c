package httpadapter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dshills/filestorm/internal/localfile"
)

func pdfFile() localfile.File {
	return localfile.File{Name: "report.pdf", MIME: "application/pdf", Bytes: []byte("%PDF-1.4 data")}
}

func TestAdapter_Upload(t *testing.T) {
	var gotAuth, gotName, gotMIME, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("upload")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotMIME = header.Header.Get("Content-Type")
		raw, _ := io.ReadAll(file)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://cdn/report.pdf","id":"42","size":13}`))
	}))
	defer srv.Close()

	a := New(srv.URL, WithClient(srv.Client()), WithHeader("Authorization", "Bearer tok"))

	var last int
	resp, err := a.Upload(context.Background(), pdfFile(), func(pct int) { last = pct })
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
	}
	if gotName != "report.pdf" {
		t.Errorf("filename = %q, want report.pdf", gotName)
	}
	if gotMIME != "application/pdf" {
		t.Errorf("part content type = %q, want application/pdf", gotMIME)
	}
	if gotBody != "%PDF-1.4 data" {
		t.Errorf("file body = %q", gotBody)
	}
	if got := resp.URL(); got != "https://cdn/report.pdf" {
		t.Errorf("URL() = %q, want https://cdn/report.pdf", got)
	}
	if got := resp.Get("id"); got != "42" {
		t.Errorf("Get(id) = %q, want 42", got)
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestAdapter_Upload_declaredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":{"message":"file too large"}}`))
	}))
	defer srv.Close()

	a := New(srv.URL, WithClient(srv.Client()))
	_, err := a.Upload(context.Background(), pdfFile(), func(int) {})
	if err == nil || !strings.Contains(err.Error(), "file too large") {
		t.Errorf("Upload() error = %v, want message from error.message", err)
	}
}

func TestAdapter_Upload_httpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(srv.URL, WithClient(srv.Client()))
	_, err := a.Upload(context.Background(), pdfFile(), func(int) {})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("Upload() error = %v, want status failure", err)
	}
}

func TestAdapter_Upload_missingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a := New(srv.URL, WithClient(srv.Client()))
	_, err := a.Upload(context.Background(), pdfFile(), func(int) {})
	if err == nil || !strings.Contains(err.Error(), "missing url") {
		t.Errorf("Upload() error = %v, want missing url", err)
	}
}

func TestAdapter_Upload_cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(srv.URL, WithClient(srv.Client()))
	_, err := a.Upload(ctx, pdfFile(), func(int) {})
	if err == nil {
		t.Error("Upload() error = nil, want context error")
	}
}

func TestAdapter_Upload_fieldName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("attachment"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"url":"u"}`))
	}))
	defer srv.Close()

	a := New(srv.URL, WithClient(srv.Client()), WithFieldName("attachment"))
	if _, err := a.Upload(context.Background(), pdfFile(), func(int) {}); err != nil {
		t.Errorf("Upload() error = %v", err)
	}
}
