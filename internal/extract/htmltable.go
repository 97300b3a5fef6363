package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// ErrNoTables is returned when markup holds no table with any cells.
var ErrNoTables = errors.New("no tables found")

// Spans above this are clamped.
const maxSpan = 1000

// DecodedTable is one logical table recovered from table markup.
type DecodedTable struct {
	Columns []string
	Rows    [][]string
}

// Record converts the table into a TableRecord.
func (t DecodedTable) Record(id string, page int) record.TableRecord {
	rows := make([]record.Row, 0, len(t.Rows))
	for _, values := range t.Rows {
		row := make(record.Row, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = record.Cell{Column: col, Value: values[i]}
		}
		rows = append(rows, row)
	}
	return record.TableRecord{
		ID:         id,
		SourcePage: page,
		Columns:    append([]string(nil), t.Columns...),
		Rows:       rows,
	}
}

// DecodeTables decodes every <table> in block, nested ones included, in
// document order.
func DecodeTables(block string) ([]DecodedTable, error) {
	doc, err := html.Parse(strings.NewReader(block))
	if err != nil {
		return nil, fmt.Errorf("parse table markup: %w", err)
	}

	var tables []DecodedTable
	for _, n := range findTables(doc) {
		if t, ok := decodeTable(n); ok {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	return tables, nil
}

func findTables(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

type rawCell struct {
	text    string
	header  bool
	rowspan int
	colspan int
}

func decodeTable(table *html.Node) (DecodedTable, bool) {
	var head, body, foot [][]rawCell

	var walk func(n *html.Node, section atom.Atom)
	walk = func(n *html.Node, section atom.Atom) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c, c.DataAtom)
			case atom.Tr:
				row := rowCells(c)
				switch section {
				case atom.Thead:
					head = append(head, row)
				case atom.Tfoot:
					foot = append(foot, row)
				default:
					body = append(body, row)
				}
			}
		}
	}
	walk(table, 0)

	// Without a thead, leading rows made only of <th> cells are the header.
	if len(head) == 0 {
		for len(body) > 0 && allHeader(body[0]) {
			head = append(head, body[0])
			body = body[1:]
		}
	}
	body = append(body, foot...)

	grid := expandSpans(append(head, body...))
	width := 0
	for _, r := range grid {
		width = max(width, len(r))
	}
	if width == 0 {
		return DecodedTable{}, false
	}

	headGrid, bodyGrid := grid[:len(head)], grid[len(head):]

	rows := make([][]string, 0, len(bodyGrid))
	for _, r := range bodyGrid {
		rows = append(rows, pad(r, width))
	}

	return DecodedTable{
		Columns: columnNames(headGrid, width),
		Rows:    rows,
	}, true
}

func rowCells(tr *html.Node) []rawCell {
	var cells []rawCell
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		cells = append(cells, rawCell{
			text:    cellText(c),
			header:  c.DataAtom == atom.Th,
			rowspan: spanAttr(c, "rowspan"),
			colspan: spanAttr(c, "colspan"),
		})
	}
	return cells
}

func allHeader(row []rawCell) bool {
	if len(row) == 0 {
		return false
	}
	for _, c := range row {
		if !c.header {
			return false
		}
	}
	return true
}

func cellText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func spanAttr(n *html.Node, key string) int {
	for _, a := range n.Attr {
		if a.Key != key {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a.Val))
		if err != nil || v < 1 {
			return 1
		}
		return min(v, maxSpan)
	}
	return 1
}

type pending struct {
	col  int
	text string
	left int
}

// expandSpans turns rows of spanning cells into a plain grid, repeating a
// spanned cell's text in every position it covers.
func expandSpans(rows [][]rawCell) [][]string {
	var carry []pending
	out := make([][]string, 0, len(rows))

	for _, row := range rows {
		var (
			line []string
			next []pending
			col  int
		)
		take := func() {
			for len(carry) > 0 && carry[0].col <= col {
				p := carry[0]
				carry = carry[1:]
				if p.col < col {
					// Overlapped by a colspan; the explicit cell wins.
					continue
				}
				line = append(line, p.text)
				if p.left > 1 {
					next = append(next, pending{col: col, text: p.text, left: p.left - 1})
				}
				col++
			}
		}

		for _, cell := range row {
			take()
			for range cell.colspan {
				line = append(line, cell.text)
				if cell.rowspan > 1 {
					next = append(next, pending{col: col, text: cell.text, left: cell.rowspan - 1})
				}
				col++
			}
		}
		for len(carry) > 0 {
			if carry[0].col > col {
				line = pad(line, carry[0].col)
				col = carry[0].col
			}
			take()
		}

		carry = next
		out = append(out, line)
	}
	return out
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// columnNames joins multi-row headers, names empty columns "Unnamed: <i>"
// and de-duplicates left to right as A, A.1, A.2.
func columnNames(head [][]string, width int) []string {
	names := make([]string, width)
	for i := range width {
		if len(head) == 0 {
			names[i] = strconv.Itoa(i)
			continue
		}
		var parts []string
		for _, r := range head {
			if i >= len(r) || r[i] == "" {
				continue
			}
			if len(parts) > 0 && parts[len(parts)-1] == r[i] {
				continue
			}
			parts = append(parts, r[i])
		}
		names[i] = strings.Join(parts, " ")
		if names[i] == "" {
			names[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	used := make(map[string]bool, width)
	counts := make(map[string]int, width)
	for i, name := range names {
		if !used[name] {
			used[name] = true
			continue
		}
		for {
			counts[name]++
			candidate := fmt.Sprintf("%s.%d", name, counts[name])
			if !used[candidate] {
				names[i] = candidate
				used[candidate] = true
				break
			}
		}
	}
	return names
}
