// Package qa answers questions about a document through an OpenAI-compatible
// chat completion endpoint.
package qa

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1/"
	DefaultModel   = "openai/gpt-oss-20b"

	notInitialized = "QA client not initialized. Cannot answer questions."
)

var errEmptyCompletion = errors.New("empty completion")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

// Client sends one prompt per question. It does not retry or cache.
type Client struct {
	completions openai.ChatCompletionService
	model       string
	temperature float64
	maxTokens   int64
	enabled     bool

	stats *metrics.Latency
	log   *slog.Logger
}

// NewClient builds a client. Without an API key the client still answers,
// with a fixed "not initialized" message.
func NewClient(cfg Config, stats *metrics.Latency, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if stats == nil {
		stats = metrics.NewLatency(0)
	}

	c := &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		enabled:     cfg.APIKey != "",
		stats:       stats,
		log:         log,
	}
	if c.enabled {
		client := openai.NewClient(
			option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			option.WithMaxRetries(0),
		)
		c.completions = client.Chat.Completions
	}
	return c
}

func (c *Client) Model() string { return c.model }

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool { return c.enabled }

// Answer returns the model's answer to prompt. Failures are returned as the
// answer text so callers can display them inline.
func (c *Client) Answer(ctx context.Context, prompt string) string {
	if c == nil || !c.enabled {
		return notInitialized
	}

	var answer string
	err := c.stats.Time(func() error {
		var err error
		answer, err = c.complete(ctx, prompt)
		return err
	})
	if err != nil {
		c.log.Error("qa call failed", "model", c.model, "error", err)
		return "Error calling QA service: " + err.Error()
	}
	c.log.Info("qa answered", "model", c.model, "prompt_tokens_est", EstimateTokens(prompt))
	return answer
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
