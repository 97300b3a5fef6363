package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// MarkdownParser keeps Markdown text as is and converts GFM pipe tables into
// <table> markup.
type MarkdownParser struct{}

var (
	tableMarkdown = goldmark.New(goldmark.WithExtensions(extension.Table))
	delimiterRow  = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
)

func (p *MarkdownParser) Parse(r io.Reader, filename string) ([]record.PageResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	texts := splitPages(string(src))
	for i, t := range texts {
		if texts[i], err = renderPipeTables(t); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
	}
	return toPages(texts), nil
}

// renderPipeTables replaces each run of pipe-table lines with its HTML form.
// A run starts at a header line followed by a delimiter row and continues
// while lines are non-blank and contain a pipe.
func renderPipeTables(text string) (string, error) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		if isTableStart(lines, i) {
			end := i + 2
			for end < len(lines) && strings.TrimSpace(lines[end]) != "" && strings.Contains(lines[end], "|") {
				end++
			}
			rendered, err := pipeTableHTML(strings.Join(lines[i:end], "\n"))
			if err != nil {
				return "", err
			}
			if rendered != "" {
				out = append(out, rendered)
				i = end
				continue
			}
		}
		out = append(out, lines[i])
		i++
	}
	return strings.Join(out, "\n"), nil
}

func isTableStart(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	return strings.Contains(lines[i], "|") &&
		strings.Contains(lines[i+1], "|") &&
		delimiterRow.MatchString(lines[i+1])
}

func pipeTableHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := tableMarkdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}
	out := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(out, "<table>") {
		return "", nil
	}
	return out, nil
}
