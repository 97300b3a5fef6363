package extract

import (
	"slices"
	"strings"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// Normalize collapses whitespace runs to a single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TableText flattens a table to text: the header line, then one line per row,
// cells in positional order.
func TableText(t record.TableRecord) string {
	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, strings.Join(t.Columns, "  "))
	for _, r := range t.Rows {
		lines = append(lines, strings.Join(r.Values(), "  "))
	}
	return strings.Join(lines, "\n")
}

// FieldText renders a form record as "<name>: <value>". Missing parts render empty.
func FieldText(f record.FormRecord) string {
	return deref(f.FieldName) + ": " + deref(f.FieldValue)
}

// CheckboxText renders a checkbox as "<label>: Checked" or "<label>: Unchecked".
func CheckboxText(c record.CheckboxRecord) string {
	if c.Checked {
		return c.Label + ": Checked"
	}
	return c.Label + ": Unchecked"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// BuildCorpus renders every extracted fact to text and deduplicates it. Pages
// are scanned in ascending order and, within a page, tables, form fields,
// checkboxes, then the raw page text. The first occurrence of a normalized
// line wins; empty lines are dropped.
func BuildCorpus(pages []record.PageResult, tables []record.TableRecord, forms []record.FormRecord, checkboxes []record.CheckboxRecord) []record.CorpusLine {
	byPage := make(map[int][]string)
	add := func(page int, text string) {
		byPage[page] = append(byPage[page], text)
	}

	// Each kind is added in full before the next so per-page order holds.
	for _, t := range tables {
		add(t.SourcePage, TableText(t))
	}
	for _, f := range forms {
		add(f.SourcePage, FieldText(f))
	}
	for _, c := range checkboxes {
		add(c.SourcePage, CheckboxText(c))
	}
	for _, p := range pages {
		add(p.Number, p.Text)
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	seen := make(map[string]bool)
	var corpus []record.CorpusLine
	for _, n := range numbers {
		for _, text := range byPage[n] {
			clean := Normalize(text)
			if clean == "" || seen[clean] {
				continue
			}
			seen[clean] = true
			corpus = append(corpus, record.CorpusLine{Text: clean, SourcePage: n})
		}
	}
	return corpus
}

// ContextText joins corpus lines with newlines, in corpus order.
func ContextText(lines []record.CorpusLine) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}
