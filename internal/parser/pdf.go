package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// PDFParser handles PDF files, one page result per PDF page. It tries the Go
// library first, then falls back to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) ([]record.PageResult, error) {
	// ledongthuc/pdf needs a file on disk.
	tmp, err := os.CreateTemp("", "docextract-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	return p.ParseFile(tmpPath)
}

func (p *PDFParser) ParseFile(path string) ([]record.PageResult, error) {
	texts, err := extractPDFPages(path)
	if err != nil && p.FallbackPdftotext {
		texts, err = extractPdftotext(path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return toPages(texts), nil
}

func extractPDFPages(path string) (pages []string, err error) {
	// The library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := reader.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractPdftotext(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitPages(string(out)), nil
}
