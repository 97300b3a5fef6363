package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// CSVParser renders a CSV file as a single page holding one table. The first
// row is the header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) ([]record.PageResult, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return toPages([]string{""}), nil
	}

	var sb strings.Builder
	sb.WriteString("<table>\n<thead>\n")
	writeRow(&sb, "th", records[0])
	sb.WriteString("</thead>\n<tbody>\n")
	for _, row := range records[1:] {
		writeRow(&sb, "td", row)
	}
	sb.WriteString("</tbody>\n</table>")

	return toPages([]string{sb.String()}), nil
}

func writeRow(sb *strings.Builder, tag string, cells []string) {
	sb.WriteString("<tr>")
	for _, c := range cells {
		fmt.Fprintf(sb, "<%s>%s</%s>", tag, html.EscapeString(c), tag)
	}
	sb.WriteString("</tr>\n")
}
