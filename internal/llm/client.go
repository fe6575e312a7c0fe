package llm

import (
	"context"
	"net/http"
	"time"
)

// Client sends one prompt to a language model and returns its text reply.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single system+user prompt exchange.
type Request struct {
	SystemPrompt    string
	UserPrompt      string
	Temperature     float64
	MaxOutputTokens int
}

// Config holds provider settings.
type Config struct {
	HTTPClient  *http.Client
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	RateLimit   int // requests per minute; zero disables client-side limiting
}

const (
	// DefaultTimeout bounds a single model request.
	DefaultTimeout = 120 * time.Second
	// DefaultMaxTokens is used when neither the request nor the config sets one.
	DefaultMaxTokens = 8000
)

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func (c Config) maxTokens(req Request) int {
	if req.MaxOutputTokens > 0 {
		return req.MaxOutputTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}
