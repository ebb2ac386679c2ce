package blast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const (
	DefaultBaseURL = "https://blast.ncbi.nlm.nih.gov/blast/Blast.cgi"

	putTimeout = 60 * time.Second
	getTimeout = 120 * time.Second

	maxResponseBytes = 16 << 20
)

// Limiter admits one external request at a time per permit.
type Limiter interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// PollPolicy controls how blast_get waits for a submitted job.
type PollPolicy struct {
	InitialWait time.Duration
	RetryWait   time.Duration
	MaxRetries  int
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		InitialWait: 30 * time.Second,
		RetryWait:   15 * time.Second,
		MaxRetries:  2,
	}
}

func (p PollPolicy) Validate() error {
	if p.InitialWait < 0 || p.RetryWait < 0 {
		return fmt.Errorf("blast poll waits must not be negative")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("blast max retries must not be negative, got %d", p.MaxRetries)
	}
	return nil
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Policy     PollPolicy
	// Limiter gates each blast_get poll. Waiting between polls holds no
	// permit.
	Limiter Limiter
	Clock   ports.Clock
	Logger  *slog.Logger
}

func NewClient(baseURL string, policy PollPolicy, limiter Limiter, clock ports.Clock, logger *slog.Logger) (*Client, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Client{BaseURL: baseURL, Policy: policy, Limiter: limiter, Clock: clock, Logger: logger}, nil
}

func (c *Client) do(ctx context.Context, method string, values url.Values, timeout time.Duration) (string, error) {
	target, err := c.endpointURL()
	if err != nil {
		return "", err
	}

	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(values.Encode())
	} else {
		target.RawQuery = values.Encode()
	}
	req, err := http.NewRequestWithContext(requestCtx, method, target.String(), body)
	if err != nil {
		return "", fmt.Errorf("create blast request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("request blast %s: %w", values.Get("CMD"), err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read blast response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("request blast %s: %s", values.Get("CMD"), resp.Status)
	}
	return string(payload), nil
}

func (c *Client) endpointURL() (*url.URL, error) {
	if c.BaseURL == "" {
		return nil, errors.New("blast base url is required")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse blast base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("blast base url must use http or https")
	}
	return parsed, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (c *Client) limited(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if c.Limiter == nil {
		return fn(ctx)
	}
	var out string
	err := c.Limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
