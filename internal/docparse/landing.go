package docparse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/metrics"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/pageresult"
	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

const DefaultLandingURL = "https://api.va.landing.ai/v1/tools/agentic-document-analysis"

const maxResponseBytes = 64 << 20

// LandingExtensions lists the file types the remote service accepts.
var LandingExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

var errNoContent = errors.New("response has no pages, chunks or markdown")

type LandingConfig struct {
	APIKey     string
	URL        string
	MaxRetries int
	Timeout    time.Duration
	RetryDelay time.Duration
}

// Landing calls the remote document analysis endpoint once per document,
// retrying rate limits and server errors with exponential backoff.
type Landing struct {
	cfg        LandingConfig
	httpClient *http.Client
	stats      *metrics.Latency
	log        *slog.Logger
}

func NewLanding(cfg LandingConfig, stats *metrics.Latency, log *slog.Logger) *Landing {
	if cfg.URL == "" {
		cfg.URL = DefaultLandingURL
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if stats == nil {
		stats = metrics.NewLatency(0)
	}
	return &Landing{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		stats:      stats,
		log:        log,
	}
}

func (l *Landing) Parse(ctx context.Context, path string) ([]record.PageResult, error) {
	log := l.log.With("file", filepath.Base(path))

	var pages []record.PageResult
	err := l.stats.Time(func() error {
		return retry.Do(
			func() error {
				var err error
				pages, err = l.analyze(ctx, path)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(uint(l.cfg.MaxRetries)+1),
			retry.Delay(l.cfg.RetryDelay),
			retry.MaxDelay(30*time.Second),
			retry.RetryIf(IsRetryable),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				log.Warn("retryable parse error", "attempt", n+1, "error", err)
			}),
		)
	})
	if err != nil {
		return nil, err
	}
	log.Info("document parsed", "pages", len(pages))
	return pages, nil
}

func (l *Landing) analyze(ctx context.Context, path string) ([]record.PageResult, error) {
	body, contentType, err := multipartFile(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Basic "+l.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document analysis status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	return decodePages(respBody)
}

// multipartFile builds the upload body. PDFs go in the "pdf" field, every
// other file type in "image".
func multipartFile(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	field := "image"
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		field = "pdf"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// decodePages reads the analysis response. Explicit pages win; otherwise
// chunks are grouped by their grounding page (0-based); otherwise the whole
// markdown becomes page 1.
func decodePages(body []byte) ([]record.PageResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode response: invalid json")
	}
	root := gjson.ParseBytes(body)
	data := root.Get("data")
	if !data.Exists() {
		data = root
	}

	if pages := data.Get("pages").Array(); len(pages) > 0 {
		out := make([]record.PageResult, 0, len(pages))
		for i, p := range pages {
			out = append(out, pageresult.FromResult(i+1, p))
		}
		return out, nil
	}

	if chunks := data.Get("chunks").Array(); len(chunks) > 0 {
		return groupChunks(chunks), nil
	}

	if md := data.Get("markdown"); md.Exists() && md.Type != gjson.Null {
		return []record.PageResult{pageresult.New(1, md.String())}, nil
	}
	return nil, errNoContent
}

func groupChunks(chunks []gjson.Result) []record.PageResult {
	byPage := make(map[int][]string)
	last := 0
	for _, c := range chunks {
		page := 0
		if g := c.Get("grounding.0.page"); g.Exists() {
			page = max(int(g.Int()), 0)
		}
		text := c.Get("text").String()
		if text == "" {
			text = c.Get("markdown").String()
		}
		if strings.TrimSpace(text) != "" {
			byPage[page] = append(byPage[page], text)
		}
		last = max(last, page)
	}

	out := make([]record.PageResult, 0, last+1)
	for p := 0; p <= last; p++ {
		out = append(out, pageresult.New(p+1, strings.Join(byPage[p], "\n\n")))
	}
	return out
}
