// Package llm talks to an OpenAI-compatible chat completion API
// (OpenRouter by default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/metrics"
	"github.com/m3rciful/serverhealth/core/telegram/netutil"
	"github.com/m3rciful/serverhealth/internal/analytics"
)

// Config holds the language model settings.
type Config struct {
	BaseURL   string `yaml:"base_url" envconfig:"LLM_BASE_URL"`
	APIKey    string `yaml:"api_key" envconfig:"OPENROUTER_API_KEY"`
	Model     string `yaml:"model" envconfig:"LLM_MODEL"`
	MaxTokens int    `yaml:"max_tokens" envconfig:"LLM_MAX_TOKENS"`
	// Referer and Title identify the app to OpenRouter.
	Referer        string `yaml:"referer" envconfig:"LLM_REFERER"`
	Title          string `yaml:"title" envconfig:"LLM_TITLE"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"LLM_TIMEOUT_SECONDS"`
}

// Defaults for Config.
const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultModel     = "anthropic/claude-3.5-sonnet"
	DefaultMaxTokens = 500
	DefaultTitle     = "Server Health Bot"
)

// ErrEmptyReply is returned when the API answers without any choice.
var ErrEmptyReply = errors.New("llm: empty reply")

// Normalize fills defaults.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 60
	}
}

// ChatClient is the subset of *openai.Client the Client needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client implements analytics.Completer.
type Client struct {
	chat      ChatClient
	model     string
	maxTokens int
}

var _ analytics.Completer = (*Client)(nil)

// New builds a Client against cfg.BaseURL.
func New(cfg Config) *Client {
	cfg.Normalize()
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	httpClient := netutil.NewClient(netutil.ClientOptions{
		Timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		ResponseHeader: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	httpClient.Transport = headerTransport{
		base:    httpClient.Transport,
		referer: cfg.Referer,
		title:   cfg.Title,
	}
	oc.HTTPClient = httpClient
	return NewWithChat(openai.NewClientWithConfig(oc), cfg.Model, cfg.MaxTokens)
}

// NewWithChat wraps an existing chat client.
func NewWithChat(chat ChatClient, model string, maxTokens int) *Client {
	return &Client{chat: chat, model: model, maxTokens: maxTokens}
}

// Complete sends turns and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, turns []analytics.Turn) (reply string, err error) {
	start := time.Now()
	defer func() {
		took := logger.Took(start)
		metrics.ObserveLLM(err, took)
		attrs := []slog.Attr{
			slog.String("model", c.model),
			slog.Int("history", len(turns)),
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", took),
		}
		if err != nil {
			logger.Warn(ctx, "llm", "completion", append(attrs, slog.String("err", err.Error()))...)
			return
		}
		logger.Info(ctx, "llm", "completion", attrs...)
	}()

	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  msgs,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}

// headerTransport adds the OpenRouter attribution headers.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer == "" && t.title == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}
