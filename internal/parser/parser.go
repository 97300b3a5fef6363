// Package parser turns local documents into page results without calling a
// remote service. Tables are emitted as <table> markup so the extractors
// treat every format alike.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/pageresult"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// Parser converts raw document bytes into ordered pages.
type Parser interface {
	Parse(r io.Reader, filename string) ([]record.PageResult, error)
}

// FileParser is implemented by parsers that can read a file in place.
type FileParser interface {
	ParseFile(path string) ([]record.PageResult, error)
}

type Options struct {
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return NewHTMLParser(), nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// splitPages splits text on form feeds. Empty pages keep their slot so page
// numbers stay dense; only a trailing empty segment is dropped.
func splitPages(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\f")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func toPages(texts []string) []record.PageResult {
	pages := make([]record.PageResult, 0, len(texts))
	for i, t := range texts {
		pages = append(pages, pageresult.New(i+1, t))
	}
	return pages
}
