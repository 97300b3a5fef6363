// Package session holds the single active document and its extraction
// result. Parsing happens at most once per selection.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/extract"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/pipeline"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/qa"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

var (
	ErrNoActiveDocument = errors.New("no active document")
	ErrSuperseded       = errors.New("active document changed during parse")
	ErrNotParsed        = errors.New("active document has not been parsed")
	ErrPageOutOfRange   = errors.New("page out of range")
	ErrEmptyQuestion    = errors.New("question is empty")
)

// State is the session lifecycle state.
type State string

const (
	StateEmpty  State = "empty"
	StateParsed State = "parsed"
)

// Parser turns a stored document into page results.
type Parser interface {
	Parse(ctx context.Context, path string) ([]record.PageResult, error)
}

// Answerer answers a fully built prompt. Failures come back as answer text.
type Answerer interface {
	Answer(ctx context.Context, prompt string) string
}

// Session owns the active document and its published result. A result is
// either complete or absent; it is replaced wholesale, never mutated.
type Session struct {
	parser Parser
	qa     Answerer
	log    *slog.Logger
	group  singleflight.Group

	mu     sync.Mutex
	active *record.Document
	gen    uint64 // bumped on every document change
	result *record.Result
	page   int
}

func New(parser Parser, qa Answerer, log *slog.Logger) *Session {
	return &Session{
		parser: parser,
		qa:     qa,
		log:    log,
		page:   1,
	}
}

// Select makes doc the active document. Selecting the document that is
// already active keeps its result; any other document resets the session.
func (s *Session) Select(doc record.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.active.Path == doc.Path {
		return
	}
	s.resetLocked()
	s.active = &doc
	s.log.Info("document selected", "doc_id", doc.ID, "name", doc.Name)
}

// Deselect clears the active document and every collection.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.log.Info("document deselected", "doc_id", s.active.ID)
	}
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.gen++
	s.active = nil
	s.result = nil
	s.page = 1
}

// EnsureParsed returns the active document's result, running the parser and
// extraction pipeline only if the document has not been parsed yet.
// Concurrent callers for the same selection share one parser call, and a
// caller whose ctx ends stops waiting without cancelling the others. A failed
// parse leaves the session empty.
func (s *Session) EnsureParsed(ctx context.Context) (*record.Result, error) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveDocument
	}
	if s.result != nil {
		res := s.result
		s.mu.Unlock()
		return res.Clone(), nil
	}
	doc, gen := *s.active, s.gen
	s.mu.Unlock()

	// The shared parse is detached from any one caller's cancellation; each
	// caller stops waiting on its own context instead.
	key := strconv.FormatUint(gen, 10) + ":" + doc.Path
	ch := s.group.DoChan(key, func() (any, error) {
		return s.parse(context.WithoutCancel(ctx), doc, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			s.log.Debug("parse coalesced", "doc_id", doc.ID)
		}
		return r.Val.(*record.Result).Clone(), nil
	}
}

func (s *Session) parse(ctx context.Context, doc record.Document, gen uint64) (*record.Result, error) {
	log := s.log.With("doc_id", doc.ID, "name", doc.Name)

	// A caller that lost the race to enter the group may arrive after publish.
	s.mu.Lock()
	if s.gen == gen && s.result != nil {
		res := s.result
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()

	pages, err := s.parser.Parse(ctx, doc.Path)
	if err != nil {
		log.Error("parse failed", "error", err)
		return nil, fmt.Errorf("parse %s: %w", doc.Name, err)
	}
	res := pipeline.Run(pages, log)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		log.Warn("discarding result for superseded document")
		return nil, ErrSuperseded
	}
	s.result = res
	return res, nil
}

// Snapshot is a read-only view of the session for display.
type Snapshot struct {
	State       State            `json:"state"`
	Active      *record.Document `json:"active_document"`
	PageCount   int              `json:"page_count"`
	CurrentPage int              `json:"current_page"`
	Tables      int              `json:"tables"`
	Forms       int              `json:"forms"`
	Checkboxes  int              `json:"checkboxes"`
	CorpusLines int              `json:"corpus_lines"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{State: StateEmpty, CurrentPage: s.page}
	if s.active != nil {
		doc := *s.active
		snap.Active = &doc
	}
	if r := s.result; r != nil {
		snap.State = StateParsed
		snap.PageCount = len(r.Pages)
		snap.Tables = len(r.Tables)
		snap.Forms = len(r.Forms)
		snap.Checkboxes = len(r.Checkboxes)
		snap.CorpusLines = len(r.Corpus)
	}
	return snap
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return StateParsed
	}
	return StateEmpty
}

// Active returns the active document, if any.
func (s *Session) Active() (record.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return record.Document{}, false
	}
	return *s.active, true
}

// Result returns a copy of the published result, or nil when empty.
func (s *Session) Result() *record.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Clone()
}

func (s *Session) Pages() []record.PageResult {
	if r := s.Result(); r != nil {
		return r.Pages
	}
	return []record.PageResult{}
}

func (s *Session) Tables() []record.TableRecord {
	if r := s.Result(); r != nil {
		return r.Tables
	}
	return []record.TableRecord{}
}

// Table returns the table with the given ID.
func (s *Session) Table(id string) (record.TableRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return record.TableRecord{}, false
	}
	for _, t := range s.result.Tables {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return record.TableRecord{}, false
}

func (s *Session) Forms() []record.FormRecord {
	if r := s.Result(); r != nil {
		return r.Forms
	}
	return []record.FormRecord{}
}

func (s *Session) Checkboxes() []record.CheckboxRecord {
	if r := s.Result(); r != nil {
		return r.Checkboxes
	}
	return []record.CheckboxRecord{}
}

func (s *Session) Corpus() []record.CorpusLine {
	if r := s.Result(); r != nil {
		return r.Corpus
	}
	return []record.CorpusLine{}
}

// SetPage moves the page selector. n must be within the parsed document.
func (s *Session) SetPage(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return ErrNotParsed
	}
	if n < 1 || n > len(s.result.Pages) {
		return fmt.Errorf("%w: %d not in 1..%d", ErrPageOutOfRange, n, len(s.result.Pages))
	}
	s.page = n
	return nil
}

// Page returns the current page selector, starting at 1.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Ask answers question against the parsed document's corpus.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	s.mu.Lock()
	res := s.result
	s.mu.Unlock()
	if res == nil || len(res.Corpus) == 0 {
		return "", ErrNotParsed
	}

	prompt := qa.BuildPrompt(extract.ContextText(res.Corpus), question)
	return s.qa.Answer(ctx, prompt), nil
}
