package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/config"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/docparse"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/metrics"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/parser"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/session"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/storage"
)

const testKey = "test-key"

const invoice = "Invoice 42\n\n| Item | Qty |\n|---|---|\n| Pen | 2 |\n\noption [x] Paid\n\fTerms apply.\n"

type echoAnswerer struct{ prompt string }

func (a *echoAnswerer) Answer(_ context.Context, prompt string) string {
	a.prompt = prompt
	return "42"
}

type failingParser struct{}

func (failingParser) Parse(context.Context, string) ([]record.PageResult, error) {
	return nil, errors.New("service said no")
}

type testEnv struct {
	srv *Server
	qa  *echoAnswerer
}

func newTestEnv(t *testing.T, p session.Parser) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFileStore(t.TempDir(), 1<<20, log)
	if err != nil {
		t.Fatal(err)
	}
	stats := metrics.NewRegistry(0)
	if p == nil {
		p = docparse.NewLocal(parser.Options{}, stats.Parse, log)
	}
	qa := &echoAnswerer{}
	cfg := config.Config{APIKey: testKey, ParseBackend: config.BackendLocal, MaxUploadBytes: 1 << 20, QAModel: "m"}
	return &testEnv{
		srv: NewServer(store, session.New(p, qa, log), stats, log, cfg),
		qa:  qa,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, strings.NewReader(body), "application/json")
}

func (e *testEnv) upload(t *testing.T, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	mw.Close()
	return e.do(t, http.MethodPost, "/api/files", &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// uploadAndSelect stores invoice.md and makes it the active document.
func (e *testEnv) uploadAndSelect(t *testing.T) record.Document {
	t.Helper()
	rec := e.upload(t, "invoice.md", invoice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	doc := decode[record.Document](t, rec)
	if rec := e.doJSON(t, http.MethodPut, "/api/session/active", `{"doc_id":"`+doc.ID+`"}`); rec.Code != http.StatusOK {
		t.Fatalf("select: %d %s", rec.Code, rec.Body.String())
	}
	return doc
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, auth := range []string{"", "Bearer wrong", testKey} {
		req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		env.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: expected 401, got %d", auth, rec.Code)
		}
	}
}

func TestUpload_ListAndDuplicate(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.upload(t, "a.txt", "one"); rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.upload(t, "a.txt", "two"); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate name, got %d", rec.Code)
	}
	if rec := env.upload(t, "b.exe", "bin"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported type, got %d", rec.Code)
	}
	if rec := env.upload(t, "big.txt", strings.Repeat("x", 1<<20+1)); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for oversize upload, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/files", nil, "")
	list := decode[struct {
		Files []record.Document `json:"files"`
	}](t, rec)
	if len(list.Files) != 1 || list.Files[0].Name != "a.txt" {
		t.Errorf("unexpected file list %+v", list.Files)
	}
}

func TestUpload_BodyOverRequestLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	// Past the multipart allowance, so the request body limit trips first.
	rec := env.upload(t, "huge.txt", strings.Repeat("x", 3<<20))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d %s", rec.Code, rec.Body.String())
	}
	list := decode[struct {
		Files []record.Document `json:"files"`
	}](t, env.do(t, http.MethodGet, "/api/files", nil, ""))
	if len(list.Files) != 0 {
		t.Errorf("expected nothing stored, got %+v", list.Files)
	}
}

func TestSelect_UnknownDocument(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.doJSON(t, http.MethodPut, "/api/session/active", `{"doc_id":"nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := env.doJSON(t, http.MethodPut, "/api/session/active", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestParse_NoActiveDocument(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.do(t, http.MethodPost, "/api/session/parse", nil, ""); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestParse_EndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	doc := env.uploadAndSelect(t)

	rec := env.do(t, http.MethodPost, "/api/session/parse", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("parse: %d %s", rec.Code, rec.Body.String())
	}
	snap := decode[session.Snapshot](t, rec)
	if snap.State != session.StateParsed || snap.PageCount != 2 || snap.Tables != 1 || snap.Checkboxes != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Active == nil || snap.Active.ID != doc.ID {
		t.Errorf("expected active document %s, got %+v", doc.ID, snap.Active)
	}

	tables := decode[struct {
		Tables []record.TableRecord `json:"tables"`
	}](t, env.do(t, http.MethodGet, "/api/session/tables", nil, ""))
	if len(tables.Tables) != 1 || tables.Tables[0].ID != "page_1_table_1" {
		t.Fatalf("unexpected tables %+v", tables.Tables)
	}
	if v, _ := tables.Tables[0].Rows[0].Get("Item"); v != "Pen" {
		t.Errorf("expected Item=Pen, got %q", v)
	}

	boxes := decode[struct {
		Checkboxes []record.CheckboxRecord `json:"checkboxes"`
	}](t, env.do(t, http.MethodGet, "/api/session/checkboxes", nil, ""))
	if len(boxes.Checkboxes) != 1 || boxes.Checkboxes[0].Label != "Paid" || !boxes.Checkboxes[0].Checked {
		t.Errorf("unexpected checkboxes %+v", boxes.Checkboxes)
	}

	corpus := decode[struct {
		Corpus []record.CorpusLine `json:"corpus"`
	}](t, env.do(t, http.MethodGet, "/api/session/corpus", nil, ""))
	if len(corpus.Corpus) == 0 || corpus.Corpus[0].Text != "Item Qty Pen 2" {
		t.Errorf("expected table text first in corpus, got %+v", corpus.Corpus)
	}
	if last := corpus.Corpus[len(corpus.Corpus)-1]; last.Text != "Terms apply." || last.SourcePage != 2 {
		t.Errorf("expected page 2 text last, got %+v", last)
	}
}

func TestParse_FailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, failingParser{})
	env.uploadAndSelect(t)

	rec := env.do(t, http.MethodPost, "/api/session/parse", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "service said no") {
		t.Errorf("expected verbatim reason, got %s", rec.Body.String())
	}
	snap := decode[session.Snapshot](t, env.do(t, http.MethodGet, "/api/session", nil, ""))
	if snap.State != session.StateEmpty {
		t.Errorf("expected empty state after failure, got %s", snap.State)
	}
}

func TestSetPage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.uploadAndSelect(t)
	if rec := env.doJSON(t, http.MethodPut, "/api/session/page", `{"page":2}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 before parse, got %d", rec.Code)
	}
	env.do(t, http.MethodPost, "/api/session/parse", nil, "")
	if rec := env.doJSON(t, http.MethodPut, "/api/session/page", `{"page":2}`); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.doJSON(t, http.MethodPut, "/api/session/page", `{"page":3}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for out of range page, got %d", rec.Code)
	}
}

func TestDeselect_ClearsCollections(t *testing.T) {
	env := newTestEnv(t, nil)
	env.uploadAndSelect(t)
	env.do(t, http.MethodPost, "/api/session/parse", nil, "")

	if rec := env.do(t, http.MethodDelete, "/api/session/active", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("deselect: %d", rec.Code)
	}
	tables := decode[struct {
		Tables []record.TableRecord `json:"tables"`
	}](t, env.do(t, http.MethodGet, "/api/session/tables", nil, ""))
	if tables.Tables == nil || len(tables.Tables) != 0 {
		t.Errorf("expected empty table list, got %+v", tables.Tables)
	}
}

func TestAsk(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.doJSON(t, http.MethodPost, "/api/session/ask", `{"question":"total?"}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 before parse, got %d", rec.Code)
	}

	env.uploadAndSelect(t)
	env.do(t, http.MethodPost, "/api/session/parse", nil, "")

	if rec := env.doJSON(t, http.MethodPost, "/api/session/ask", `{"question":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank question, got %d", rec.Code)
	}

	rec := env.doJSON(t, http.MethodPost, "/api/session/ask", `{"question":"How many pens?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ask: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]string](t, rec)["answer"]; got != "42" {
		t.Errorf("unexpected answer %q", got)
	}
	if !strings.Contains(env.qa.prompt, "Question: How many pens?") || !strings.Contains(env.qa.prompt, "Paid: Checked") {
		t.Errorf("unexpected prompt %q", env.qa.prompt)
	}
}

func TestExports(t *testing.T) {
	env := newTestEnv(t, nil)
	env.uploadAndSelect(t)
	env.do(t, http.MethodPost, "/api/session/parse", nil, "")

	rec := env.do(t, http.MethodGet, "/api/session/tables/page_1_table_1/export?format=csv", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "Item,Qty\nPen,2\n" {
		t.Errorf("unexpected csv %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
		t.Errorf("unexpected content disposition %q", cd)
	}

	rec = env.do(t, http.MethodGet, "/api/session/checkboxes/export?format=markdown", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Paid") {
		t.Errorf("unexpected markdown export %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("unexpected content type %q", ct)
	}

	if rec := env.do(t, http.MethodGet, "/api/session/forms/export?format=xml", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/session/tables/page_9_table_9/export", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown table, got %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.uploadAndSelect(t)
	env.do(t, http.MethodPost, "/api/session/parse", nil, "")

	rec := env.do(t, http.MethodGet, "/api/stats", nil, "")
	body := decode[struct {
		Stats map[string]metrics.Snapshot `json:"stats"`
	}](t, rec)
	if body.Stats["parse"].Count != 1 {
		t.Errorf("expected one parse sample, got %+v", body.Stats)
	}
	if _, ok := body.Stats["qa"]; !ok {
		t.Errorf("expected qa stats key")
	}
}
