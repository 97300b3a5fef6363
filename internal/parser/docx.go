package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// DOCXParser handles .docx files. Paragraphs become text lines, headings
// become Markdown headings, tables become <table> markup and explicit page
// breaks start a new page.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) ([]record.PageResult, error) {
	// go-docx needs a ReaderAt and size, so write to a temp file.
	tmp, err := os.CreateTemp("", "docextract-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	return p.ParseFile(tmp.Name())
}

func (p *DOCXParser) ParseFile(path string) ([]record.PageResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx: %w", err)
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var pages []string
	var current []string
	flush := func() {
		pages = append(pages, strings.Join(current, "\n"))
		current = nil
	}

	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			text, pageBreak := docxParagraphText(v)
			if text != "" {
				if level := docxHeadingLevel(v); level > 0 {
					text = strings.Repeat("#", level) + " " + text
				}
				current = append(current, text)
			}
			if pageBreak {
				flush()
			}
		case *docx.Table:
			current = append(current, docxTableHTML(v))
		}
	}
	if len(current) > 0 || len(pages) == 0 {
		flush()
	}
	return toPages(pages), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

// docxParagraphText returns the paragraph's text and whether it ends with a
// page break.
func docxParagraphText(para *docx.Paragraph) (string, bool) {
	var buf strings.Builder
	pageBreak := false
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteByte('\t')
			case *docx.BarterRabbet:
				if t.Type == "page" {
					pageBreak = true
				} else {
					buf.WriteByte(' ')
				}
			}
		}
	}
	return strings.TrimSpace(buf.String()), pageBreak
}

// docxTableHTML renders a Word table. Horizontal merges become colspan;
// vertically merged continuation cells render empty.
func docxTableHTML(tbl *docx.Table) string {
	var sb strings.Builder
	sb.WriteString("<table>")
	for _, row := range tbl.TableRows {
		sb.WriteString("<tr>")
		for _, cell := range row.TableCells {
			span := 1
			continuation := false
			if props := cell.TableCellProperties; props != nil {
				if props.GridSpan != nil && props.GridSpan.Val > 1 {
					span = props.GridSpan.Val
				}
				if props.VMerge != nil && props.VMerge.Val != "restart" {
					continuation = true
				}
			}
			if span > 1 {
				fmt.Fprintf(&sb, `<td colspan="%d">`, span)
			} else {
				sb.WriteString("<td>")
			}
			if !continuation {
				var parts []string
				for _, para := range cell.Paragraphs {
					if t, _ := docxParagraphText(para); t != "" {
						parts = append(parts, html.EscapeString(t))
					}
				}
				sb.WriteString(strings.Join(parts, "<br>"))
				for _, nested := range cell.Tables {
					sb.WriteString(docxTableHTML(nested))
				}
			}
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table>")
	return sb.String()
}
