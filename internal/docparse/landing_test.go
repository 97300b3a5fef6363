package docparse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestLanding(url string, stats *metrics.Latency) *Landing {
	return NewLanding(LandingConfig{
		APIKey:     "secret",
		URL:        url,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, stats, testLogger())
}

func TestLanding_RequestShape(t *testing.T) {
	var gotAuth, gotField, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		for field, files := range r.MultipartForm.File {
			gotField = field
			gotName = files[0].Filename
			f, _ := files[0].Open()
			b, _ := io.ReadAll(f)
			f.Close()
			gotBody = string(b)
		}
		w.Write([]byte(`{"data":{"markdown":"hello"}}`))
	}))
	defer srv.Close()

	pdf := writeDoc(t, "scan.PDF", "%PDF-fake")
	if _, err := newTestLanding(srv.URL, nil).Parse(context.Background(), pdf); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gotAuth != "Basic secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotField != "pdf" || gotName != "scan.PDF" || gotBody != "%PDF-fake" {
		t.Errorf("unexpected upload %q %q %q", gotField, gotName, gotBody)
	}

	img := writeDoc(t, "photo.png", "png")
	if _, err := newTestLanding(srv.URL, nil).Parse(context.Background(), img); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gotField != "image" {
		t.Errorf("expected image field for png, got %q", gotField)
	}
}

func TestLanding_ExplicitPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"pages":[
			{"markdown":"first","fields":[{"name":"Date","value":"2024-01-01"}]},
			{"text":"second"}
		]}}`))
	}))
	defer srv.Close()

	stats := metrics.NewLatency(0)
	pages, err := newTestLanding(srv.URL, stats).Parse(context.Background(), writeDoc(t, "a.pdf", "x"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Number != 1 || pages[0].Text != "first" || pages[1].Number != 2 || pages[1].Text != "second" {
		t.Errorf("unexpected pages %+v", pages)
	}
	if len(pages[0].Fields) != 1 || *pages[0].Fields[0].Name != "Date" {
		t.Errorf("expected Date field, got %+v", pages[0].Fields)
	}
	if s := stats.Snapshot(); s.Count != 1 || s.Failures != 0 {
		t.Errorf("expected one successful sample, got %+v", s)
	}
}

func TestLanding_ChunksGroupedByPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"markdown":"ignored","chunks":[
			{"text":"a","grounding":[{"page":0}]},
			{"text":"c","grounding":[{"page":2}]},
			{"text":"b","grounding":[{"page":0}]}
		]}}`))
	}))
	defer srv.Close()

	pages, err := newTestLanding(srv.URL, nil).Parse(context.Background(), writeDoc(t, "a.pdf", "x"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[0].Text != "a\n\nb" || pages[1].Text != "" || pages[2].Text != "c" {
		t.Errorf("unexpected grouping %q %q %q", pages[0].Text, pages[1].Text, pages[2].Text)
	}
	if pages[2].Number != 3 {
		t.Errorf("expected 1-based numbering, got %d", pages[2].Number)
	}
}

func TestLanding_MarkdownFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"markdown":"option [x] Agree"}}`))
	}))
	defer srv.Close()

	pages, err := newTestLanding(srv.URL, nil).Parse(context.Background(), writeDoc(t, "a.pdf", "x"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pages) != 1 || pages[0].Number != 1 || pages[0].Text != "option [x] Agree" {
		t.Errorf("unexpected pages %+v", pages)
	}
}

func TestLanding_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":{"markdown":"ok"}}`))
	}))
	defer srv.Close()

	pages, err := newTestLanding(srv.URL, nil).Parse(context.Background(), writeDoc(t, "a.pdf", "x"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if pages[0].Text != "ok" {
		t.Errorf("unexpected text %q", pages[0].Text)
	}
}

func TestLanding_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	stats := metrics.NewLatency(0)
	_, err := newTestLanding(srv.URL, stats).Parse(context.Background(), writeDoc(t, "a.pdf", "x"))
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if s := stats.Snapshot(); s.Failures != 1 {
		t.Errorf("expected one failed sample, got %+v", s)
	}
}

func TestLanding_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"unsupported file"}`))
	}))
	defer srv.Close()

	_, err := newTestLanding(srv.URL, nil).Parse(context.Background(), writeDoc(t, "a.pdf", "x"))
	if err == nil || IsRetryable(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported file") {
		t.Errorf("expected body in error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestLanding_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := newTestLanding(srv.URL, nil).Parse(context.Background(), writeDoc(t, "a.pdf", "x"))
	if !errors.Is(err, errNoContent) {
		t.Errorf("expected errNoContent, got %v", err)
	}
}

func TestLanding_MissingFile(t *testing.T) {
	_, err := newTestLanding("http://127.0.0.1:1", nil).Parse(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	if err == nil || IsRetryable(err) {
		t.Errorf("expected permanent open error, got %v", err)
	}
}

func TestRetryableError_Message(t *testing.T) {
	err := &RetryableError{StatusCode: 503, Message: strings.Repeat("x", 300)}
	if !strings.Contains(err.Error(), "status 503") || !strings.HasSuffix(err.Error(), "...") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
