package extract

import (
	"regexp"
	"strings"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// checkboxRe matches the "option [x]" marker. Gaps never cross a line break.
var checkboxRe = regexp.MustCompile(`option[ \t]*[:\-]?[ \t]*\[([xX ])\]`)

// Checkboxes finds every checkbox marker in a page's text. A label runs from
// its marker to the end of the line or to the next marker on that line.
func Checkboxes(page record.PageResult) []record.CheckboxRecord {
	text := page.Text
	matches := checkboxRe.FindAllStringSubmatchIndex(text, -1)
	out := make([]record.CheckboxRecord, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if nl := strings.IndexByte(text[m[1]:], '\n'); nl >= 0 {
			end = m[1] + nl
		}
		if i+1 < len(matches) && matches[i+1][0] < end {
			end = matches[i+1][0]
		}
		out = append(out, record.CheckboxRecord{
			Label:      strings.TrimSpace(text[m[1]:end]),
			Checked:    strings.ToLower(text[m[2]:m[3]]) == "x",
			SourcePage: page.Number,
		})
	}
	return out
}
