package extract

import (
	"fmt"
	"regexp"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

var tableTagRe = regexp.MustCompile(`(?i)<(/?)table\b[^>]*>`)

// FindTableBlocks returns every top-level <table>...</table> span in text, in
// order of appearance. Nested tables stay inside their enclosing span. An
// opening tag that never balances is skipped and the scan resumes after it.
func FindTableBlocks(text string) []string {
	tags := tableTagRe.FindAllStringSubmatchIndex(text, -1)

	var blocks []string
	for i := 0; i < len(tags); {
		if isClosingTag(tags[i]) {
			i++
			continue
		}

		depth, end := 0, -1
		for j := i; j < len(tags); j++ {
			if isClosingTag(tags[j]) {
				depth--
			} else {
				depth++
			}
			if depth == 0 {
				end = j
				break
			}
		}
		if end < 0 {
			i++
			continue
		}

		blocks = append(blocks, text[tags[i][0]:tags[end][1]])
		i = end + 1
	}
	return blocks
}

func isClosingTag(loc []int) bool {
	return loc[3] > loc[2]
}

// TableID is the stable identifier of the n-th table (1-based) on a page.
func TableID(page, n int) string {
	return fmt.Sprintf("page_%d_table_%d", page, n)
}

// Tables extracts every decodable table on a page. Blocks that fail to decode
// are skipped; their errors are returned for logging only.
func Tables(page record.PageResult) ([]record.TableRecord, []error) {
	var (
		tables  []record.TableRecord
		skipped []error
	)

	n := 0
	for i, block := range FindTableBlocks(page.Text) {
		decoded, err := DecodeTables(block)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("page %d block %d: %w", page.Number, i+1, err))
			continue
		}
		for _, d := range decoded {
			n++
			tables = append(tables, d.Record(TableID(page.Number, n), page.Number))
		}
	}
	return tables, skipped
}
