// Package storage keeps uploaded documents on local disk.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

var (
	ErrDuplicate = errors.New("a file with this name already exists")
	ErrNotFound  = errors.New("document not found")
	ErrTooLarge  = errors.New("file exceeds max size")
)

// FileStore writes uploads into one directory and indexes them in upload
// order. File names are unique within the store.
type FileStore struct {
	dir      string
	maxBytes int64
	log      *slog.Logger

	mu   sync.Mutex
	docs []record.Document
}

// NewFileStore opens dir, creating it if needed, and indexes any files
// already in it.
func NewFileStore(dir string, maxBytes int64, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	s := &FileStore{dir: dir, maxBytes: maxBytes, log: log}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read upload dir: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", e.Name(), err)
		}
		h := sha256.New()
		n, err := io.Copy(h, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("hash %s: %w", e.Name(), err)
		}
		s.docs = append(s.docs, record.Document{
			ID:          uuid.NewString(),
			Name:        e.Name(),
			Path:        path,
			ContentHash: hex.EncodeToString(h.Sum(nil)),
			Size:        n,
		})
	}
	if len(s.docs) > 0 {
		s.log.Info("indexed existing uploads", "dir", s.dir, "count", len(s.docs))
	}
	return nil
}

// Save stores the content of r under the sanitized name. A second upload
// with the same name is rejected with ErrDuplicate.
func (s *FileStore) Save(name string, r io.Reader) (record.Document, error) {
	name = SanitizeFilename(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if s.indexLocked(func(d record.Document) bool { return d.Name == name }) >= 0 {
		return record.Document{}, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	if _, err := os.Stat(path); err == nil {
		return record.Document{}, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return record.Document{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(tmp, h), src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return record.Document{}, fmt.Errorf("write upload: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return record.Document{}, fmt.Errorf("%w (%d bytes)", ErrTooLarge, s.maxBytes)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return record.Document{}, fmt.Errorf("store upload: %w", err)
	}

	doc := record.Document{
		ID:          uuid.NewString(),
		Name:        name,
		Path:        path,
		ContentHash: hex.EncodeToString(h.Sum(nil)),
		Size:        n,
	}
	s.docs = append(s.docs, doc)
	s.log.Info("upload stored", "doc_id", doc.ID, "name", name, "size", n)
	return doc, nil
}

// List returns every stored document in upload order.
func (s *FileStore) List() []record.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.docs)
}

func (s *FileStore) Get(id string) (record.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(func(d record.Document) bool { return d.ID == id })
	if i < 0 {
		return record.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.docs[i], nil
}

func (s *FileStore) indexLocked(match func(record.Document) bool) int {
	return slices.IndexFunc(s.docs, match)
}

// SanitizeFilename keeps only the base name and strips path tricks.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.TrimSpace(name)
	switch {
	case name == "" || name == "." || name == "/":
		return "unnamed"
	case strings.HasPrefix(name, "."):
		return "unnamed" + name
	}
	return name
}
