// Package export renders extracted collections as downloadable CSV or
// Markdown tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "markdown"
)

// ParseFormat accepts "csv", "markdown" or "md". Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) Ext() string {
	if f == Markdown {
		return ".md"
	}
	return ".csv"
}

func (f Format) ContentType() string {
	if f == Markdown {
		return "text/markdown; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// Grid is a header plus rows of equal width.
type Grid struct {
	Header []string
	Rows   [][]string
}

func FromTable(t record.TableRecord) Grid {
	g := Grid{Header: t.Columns, Rows: make([][]string, len(t.Rows))}
	for i, r := range t.Rows {
		g.Rows[i] = r.Values()
	}
	return g
}

// FromForms renders absent names and values as empty cells.
func FromForms(forms []record.FormRecord) Grid {
	g := Grid{Header: []string{"field_name", "field_value", "source_page"}}
	for _, f := range forms {
		g.Rows = append(g.Rows, []string{deref(f.FieldName), deref(f.FieldValue), strconv.Itoa(f.SourcePage)})
	}
	return g
}

func FromCheckboxes(boxes []record.CheckboxRecord) Grid {
	g := Grid{Header: []string{"label", "checked", "source_page"}}
	for _, c := range boxes {
		g.Rows = append(g.Rows, []string{c.Label, strconv.FormatBool(c.Checked), strconv.Itoa(c.SourcePage)})
	}
	return g
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Write renders g to w in the given format.
func Write(w io.Writer, g Grid, f Format) error {
	switch f {
	case CSV:
		return writeCSV(w, g)
	case Markdown:
		return writeMarkdown(w, g)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

func writeCSV(w io.Writer, g Grid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(g.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(g.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func writeMarkdown(w io.Writer, g Grid) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
	table.Header(escapeCells(g.Header))
	for _, r := range g.Rows {
		if err := table.Append(escapeCells(r)); err != nil {
			return fmt.Errorf("append markdown row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

// Pipes would split a Markdown cell.
func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a path-safe slug of at most 50 characters.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// Filename builds a download name such as "invoice-pdf-page-1-table-1.csv".
func Filename(docName, subject string, f Format) string {
	slug := Slugify(docName + " " + subject)
	if slug == "" {
		slug = "export"
	}
	return slug + f.Ext()
}
