package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/pageresult"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// HTMLParser renders an HTML document as one page. Content is sanitized
// first; tables survive as markup. Form controls become fields, and
// checkboxes and radio buttons become "option [x] Label" lines.
type HTMLParser struct {
	policy *bluemonday.Policy
}

func NewHTMLParser() *HTMLParser {
	return &HTMLParser{policy: bluemonday.UGCPolicy()}
}

func (p *HTMLParser) Parse(r io.Reader, filename string) ([]record.PageResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	raw, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	fields, boxes := formControls(raw)

	clean, err := html.Parse(bytes.NewReader(p.policy.SanitizeBytes(src)))
	if err != nil {
		return nil, fmt.Errorf("parse sanitized html: %w", err)
	}
	text, err := renderText(clean)
	if err != nil {
		return nil, err
	}
	if len(boxes) > 0 {
		text = strings.TrimSpace(text + "\n" + strings.Join(boxes, "\n"))
	}

	return []record.PageResult{pageresult.New(1, text, fields...)}, nil
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Br: true,
	atom.Section: true, atom.Article: true, atom.Blockquote: true,
	atom.Pre: true, atom.Ul: true, atom.Ol: true, atom.Dl: true,
	atom.Dt: true, atom.Dd: true, atom.Hr: true, atom.Caption: true,
}

// renderText flattens the document to lines. Headings become Markdown
// headings and tables are re-serialized verbatim.
func renderText(doc *html.Node) (string, error) {
	var buf bytes.Buffer
	var walkErr error

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if walkErr != nil {
			return
		}
		switch n.Type {
		case html.TextNode:
			buf.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
			return
		case html.ElementNode:
			if n.DataAtom == atom.Table {
				buf.WriteByte('\n')
				if err := html.Render(&buf, n); err != nil {
					walkErr = fmt.Errorf("render table: %w", err)
				}
				buf.WriteByte('\n')
				return
			}
			if level := headingLevel(n.DataAtom); level > 0 {
				buf.WriteString("\n" + strings.Repeat("#", level) + " " + textContent(n) + "\n")
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			buf.WriteByte('\n')
		}
	}
	walk(doc)
	if walkErr != nil {
		return "", walkErr
	}

	var lines []string
	for _, l := range strings.Split(buf.String(), "\n") {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// formControls collects named form controls in document order.
func formControls(doc *html.Node) ([]record.FieldRecord, []string) {
	labels := labelsByID(doc)

	var fields []record.FieldRecord
	var boxes []string

	var walk func(n *html.Node, enclosing string)
	walk = func(n *html.Node, enclosing string) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Label:
				enclosing = textContent(n)
			case atom.Input:
				label := controlLabel(n, labels, enclosing)
				switch strings.ToLower(attr(n, "type")) {
				case "hidden", "submit", "button", "reset", "image", "file", "password":
				case "checkbox", "radio":
					mark := " "
					if hasAttr(n, "checked") {
						mark = "x"
					}
					if label == nil {
						label = optionalAttr(n, "value")
					}
					boxes = append(boxes, fmt.Sprintf("option [%s] %s", mark, deref(label)))
				default:
					fields = append(fields, record.FieldRecord{Name: label, Value: optionalAttr(n, "value")})
				}
				return
			case atom.Textarea:
				fields = append(fields, record.FieldRecord{
					Name:  controlLabel(n, labels, enclosing),
					Value: record.Str(textContent(n)),
				})
				return
			case atom.Select:
				fields = append(fields, record.FieldRecord{
					Name:  controlLabel(n, labels, enclosing),
					Value: selectedOption(n),
				})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, enclosing)
		}
	}
	walk(doc, "")
	return fields, boxes
}

func labelsByID(doc *html.Node) map[string]string {
	labels := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Label {
			if id := attr(n, "for"); id != "" {
				labels[id] = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return labels
}

// controlLabel prefers a <label for>, then an enclosing <label>, then the
// control's name. Nil when none exists.
func controlLabel(n *html.Node, labels map[string]string, enclosing string) *string {
	if l, ok := labels[attr(n, "id")]; ok && l != "" {
		return record.Str(l)
	}
	if enclosing != "" {
		return record.Str(enclosing)
	}
	return optionalAttr(n, "name")
}

func selectedOption(sel *html.Node) *string {
	var found *string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Option && hasAttr(n, "selected") {
			found = record.Str(textContent(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(sel)
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func optionalAttr(n *html.Node, key string) *string {
	for _, a := range n.Attr {
		if a.Key == key {
			return record.Str(a.Val)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
