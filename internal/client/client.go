package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/roach88/stepnorm/internal/stepimpl"
)

// ComponentsPath lists all components of the server.
const ComponentsPath = "/api/steps/v1/all"

// Options configures a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Retries  int

	// RetryWait and RetryMaxWait bound the backoff between attempts.
	RetryWait    time.Duration
	RetryMaxWait time.Duration

	Normalizer *stepimpl.Normalizer
	Logger     *slog.Logger
}

// Client talks to a component server.
type Client struct {
	http       *resty.Client
	normalizer *stepimpl.Normalizer
	logger     *slog.Logger
}

// New creates a Client. Zero options fall back to defaults.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 100 * time.Millisecond
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = 2 * time.Second
	}
	if opts.Normalizer == nil {
		opts.Normalizer = stepimpl.NewNormalizer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json; charset=UTF-8").
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait)
	if opts.Username != "" {
		httpClient.SetBasicAuth(opts.Username, opts.Password)
	}
	httpClient.AddRetryCondition(retryCondition)

	return &Client{
		http:       httpClient,
		normalizer: opts.Normalizer,
		logger:     opts.Logger,
	}, nil
}

// retryCondition retries network errors, 5xx and throttling responses.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status %d)", e.Body, e.StatusCode)
}

// FetchComponents retrieves every component and normalizes leaf tasks.
func (c *Client) FetchComponents(ctx context.Context) ([]Component, error) {
	resp, err := c.http.R().SetContext(ctx).Get(ComponentsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch components: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("fetch components: %w", &APIError{StatusCode: resp.StatusCode(), Body: resp.String()})
	}

	components, err := c.decodeComponents(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("fetch components: %w", err)
	}

	c.logger.Debug("components fetched",
		"url", c.http.BaseURL+ComponentsPath,
		"status", resp.StatusCode(),
		"count", len(components),
		"duration", resp.Time(),
	)
	return components, nil
}
