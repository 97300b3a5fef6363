package docparse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/metrics"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/parser"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// Local parses documents in process with the format parsers.
type Local struct {
	opts  parser.Options
	stats *metrics.Latency
	log   *slog.Logger
}

func NewLocal(opts parser.Options, stats *metrics.Latency, log *slog.Logger) *Local {
	if stats == nil {
		stats = metrics.NewLatency(0)
	}
	return &Local{opts: opts, stats: stats, log: log}
}

func (l *Local) Parse(ctx context.Context, path string) ([]record.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := parser.ForFile(path, l.opts)
	if err != nil {
		return nil, err
	}

	var pages []record.PageResult
	err = l.stats.Time(func() error {
		var err error
		pages, err = parseWith(p, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("document parsed locally", "file", filepath.Base(path), "pages", len(pages))
	return pages, nil
}

func parseWith(p parser.Parser, path string) ([]record.PageResult, error) {
	if fp, ok := p.(parser.FileParser); ok {
		return fp.ParseFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return p.Parse(f, filepath.Base(path))
}
