// Package openai adapts the go-openai SDK to the generation calls the bot
// makes: chat completions, image generation, speech and audio translation.
package openai

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"

	"github.com/m3rciful/gptbot/core/logger"
	"github.com/m3rciful/gptbot/core/telegram/netutil"
)

const (
	component = "openai"

	defaultAPIBase         = "https://api.openai.com/v1"
	defaultTimeout         = 120 * time.Second
	defaultVisionMaxTokens = 300
	defaultMaxConcurrent   = 4
)

// Config configures a Client.
type Config struct {
	APIKey          string        `yaml:"api_key" envconfig:"OPENAI_API"`
	APIBase         string        `yaml:"api_base" envconfig:"OPENAI_API_BASE"`
	Timeout         time.Duration `yaml:"-" ignored:"true"`
	TimeoutSeconds  int           `yaml:"timeout_seconds" envconfig:"OPENAI_TIMEOUT_SECONDS"`
	MaxRetries      int           `yaml:"max_retries" envconfig:"OPENAI_MAX_RETRIES"`
	SystemPrompt    string        `yaml:"system_prompt" envconfig:"OPENAI_SYSTEM_PROMPT"`
	VisionMaxTokens int           `yaml:"vision_max_tokens" envconfig:"OPENAI_VISION_MAX_TOKENS"`
	// MaxConcurrent caps requests in flight across all users.
	MaxConcurrent int `yaml:"max_concurrent" envconfig:"OPENAI_MAX_CONCURRENT"`
}

// Normalize fills defaults and validates required fields.
func (c *Config) Normalize() error {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.APIKey == "" {
		return errors.New("openai: api_key is required (env OPENAI_API)")
	}
	c.APIBase = strings.TrimRight(strings.TrimSpace(c.APIBase), "/")
	if c.APIBase == "" {
		c.APIBase = defaultAPIBase
	}
	if c.Timeout <= 0 && c.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	c.MaxRetries = max(c.MaxRetries, 0)
	if c.VisionMaxTokens <= 0 {
		c.VisionMaxTokens = defaultVisionMaxTokens
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	return nil
}

// Client issues generation calls through the SDK, bounded by a shared
// semaphore and retried on rate limits and server errors.
type Client struct {
	cfg     Config
	api     *goopenai.Client
	sem     *semaphore.Weighted
	backoff time.Duration
}

// New builds a Client from cfg. cfg is normalized on a copy.
func New(cfg Config) (*Client, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	sdk := goopenai.DefaultConfig(cfg.APIKey)
	sdk.BaseURL = cfg.APIBase
	sdk.HTTPClient = netutil.NewClient(netutil.ClientOptions{
		Timeout:     cfg.Timeout,
		DialTimeout: 10 * time.Second,
	})
	return &Client{
		cfg:     cfg,
		api:     goopenai.NewClientWithConfig(sdk),
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		backoff: time.Second,
	}, nil
}

// SystemPrompt returns the configured system prompt for chat requests.
func (c *Client) SystemPrompt() string {
	return c.cfg.SystemPrompt
}

// call runs fn under the concurrency cap, retrying transient network
// failures, 5xx and 429 responses with jittered backoff.
func (c *Client) call(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	start := time.Now()
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)
	if waited := time.Since(start); waited > time.Second {
		logger.Debug(ctx, component, "openai.queue",
			slog.String("endpoint", endpoint),
			slog.Duration("waited", logger.RoundMS(waited)),
		)
	}

	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			base := c.backoff * time.Duration(attempt*attempt)
			wait := base + time.Duration(rand.Int64N(int64(base/2)+1))
			logger.Warn(ctx, component, "openai.retry",
				slog.String("status", "retry"),
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", logger.RoundMS(wait)),
				slog.String("err", err.Error()),
			)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err = fn(ctx); err == nil {
			logger.Debug(ctx, component, "openai.request",
				slog.String("status", "ok"),
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt+1),
				slog.Duration("duration", logger.Took(start)),
			)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			break
		}
	}
	logger.Warn(ctx, component, "openai.request",
		slog.String("status", "fail"),
		slog.String("endpoint", endpoint),
		slog.Duration("duration", logger.Took(start)),
		slog.String("err", err.Error()),
	)
	return err
}

func retryable(err error) bool {
	status := statusCode(err)
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return true
	}
	return status == 0 && netutil.ShouldRetry(err)
}

// statusCode is the HTTP status of an SDK error, or 0.
func statusCode(err error) int {
	var (
		apiErr *goopenai.APIError
		reqErr *goopenai.RequestError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		return reqErr.HTTPStatusCode
	}
	return 0
}

// Message extracts the user-facing text of err: the API message for SDK
// errors, a fixed text for timeouts and the raw error otherwise.
func Message(err error) string {
	var (
		apiErr *goopenai.APIError
		reqErr *goopenai.RequestError
	)
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.As(err, &reqErr):
		if body := strings.TrimSpace(string(reqErr.Body)); body != "" {
			return logger.SanitizeLimit(body, 512)
		}
		return http.StatusText(reqErr.HTTPStatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	}
	return err.Error()
}
