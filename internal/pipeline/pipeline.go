// Package pipeline runs the extractors over every page of one document and
// assembles the combined result.
package pipeline

import (
	"log/slog"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/extract"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// Run extracts tables, form fields and checkboxes page by page, in the order
// given, then builds the corpus. It never fails: undecodable table blocks are
// logged and counted.
func Run(pages []record.PageResult, log *slog.Logger) *record.Result {
	res := &record.Result{
		Pages:      append([]record.PageResult(nil), pages...),
		Tables:     []record.TableRecord{},
		Forms:      []record.FormRecord{},
		Checkboxes: []record.CheckboxRecord{},
	}

	for _, page := range pages {
		plog := log.With("page", page.Number)

		tables, skipped := extract.Tables(page)
		for _, err := range skipped {
			plog.Debug("table block skipped", "error", err)
		}
		res.DroppedTableBlocks += len(skipped)
		res.Tables = append(res.Tables, tables...)
		res.Forms = append(res.Forms, extract.Forms(page)...)
		res.Checkboxes = append(res.Checkboxes, extract.Checkboxes(page)...)
	}

	res.Corpus = extract.BuildCorpus(res.Pages, res.Tables, res.Forms, res.Checkboxes)
	if res.Corpus == nil {
		res.Corpus = []record.CorpusLine{}
	}

	log.Info("extraction complete",
		"pages", len(res.Pages),
		"tables", len(res.Tables),
		"forms", len(res.Forms),
		"checkboxes", len(res.Checkboxes),
		"corpus_lines", len(res.Corpus),
		"dropped_table_blocks", res.DroppedTableBlocks,
	)
	return res
}
