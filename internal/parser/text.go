package parser

import (
	"fmt"
	"io"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// TextParser handles plain text files. Form feeds separate pages.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]record.PageResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return toPages(splitPages(string(src))), nil
}
