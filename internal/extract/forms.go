package extract

import "github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"

// Forms lifts a page's fields into form records, in order. Duplicates are kept.
func Forms(page record.PageResult) []record.FormRecord {
	out := make([]record.FormRecord, 0, len(page.Fields))
	for _, f := range page.Fields {
		out = append(out, record.FormRecord{
			FieldName:  f.Name,
			FieldValue: f.Value,
			SourcePage: page.Number,
		})
	}
	return out
}
