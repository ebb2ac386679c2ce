package ncbi

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
)

const (
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

	searchTimeout  = 30 * time.Second
	summaryTimeout = 30 * time.Second
	fetchTimeout   = 60 * time.Second

	maxResponseBytes = 8 << 20
)

// Client calls the NCBI E-utilities endpoints.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewClient(baseURL string, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: baseURL, APIKey: apiKey, Logger: logger}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, timeout time.Duration) ([]byte, error) {
	target, err := c.endpointURL(endpoint)
	if err != nil {
		return nil, err
	}
	if c.APIKey != "" {
		params.Set("api_key", c.APIKey)
	}
	target.RawQuery = params.Encode()

	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}

	c.logger().Debug("ncbi request", slog.String("endpoint", endpoint), slog.String("db", params.Get("db")))

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("request %s: %s: %s", endpoint, resp.Status, truncate(strings.TrimSpace(string(body)), 200))
	}
	return body, nil
}

func (c *Client) endpointURL(endpoint string) (*url.URL, error) {
	if c.BaseURL == "" {
		return nil, errors.New("ncbi base url is required")
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ncbi base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("ncbi base url must use http or https")
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.Parse(endpoint)
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

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
