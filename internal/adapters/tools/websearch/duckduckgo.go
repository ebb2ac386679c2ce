package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/time/rate"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const (
	DefaultEndpoint = "https://lite.duckduckgo.com/lite/"

	defaultMaxResults = 5
	maxMaxResults     = 10
	maxTooManyRetries = 3
	requestTimeout    = 15 * time.Second
	maxResponseBytes  = 4 << 20
	userAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	linkPattern     = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	linkPatternHref = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	snippetPattern  = regexp.MustCompile(`<td[^>]*class=['"]result-snippet['"][^>]*>([^<]+(?:<[^>]+>[^<]*</[^>]+>)*[^<]*)</td>`)
	anyLinkPattern  = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)

	errEmptyQuery  = errors.New("query is empty")
	errRateLimited = errors.New("search rate limited by provider")
)

type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// DuckDuckGo searches the lite HTML interface. Requests from every session
// share one pacing limiter.
type DuckDuckGo struct {
	Endpoint   string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Clock      ports.Clock
	Logger     *slog.Logger
}

// NewDuckDuckGo paces requests to qps queries per second.
func NewDuckDuckGo(endpoint string, qps float64, logger *slog.Logger) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if qps <= 0 {
		qps = 1
	}
	return &DuckDuckGo{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: requestTimeout},
		Limiter:    rate.NewLimiter(rate.Limit(qps), 1),
		Clock:      ports.SystemClock{},
		Logger:     logger,
	}
}

type searchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func (d *DuckDuckGo) Tool() ports.Tool {
	return ports.NewTool(Spec(), func() searchArgs { return searchArgs{MaxResults: defaultMaxResults} }, d.run)
}

func Spec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        domain.ToolWebSearch,
		Description: "Searches the web and returns result titles, URLs and snippets. Use it when the NCBI tools cannot answer the question.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query":       {Type: jsonschema.String, Description: "The search query."},
				"max_results": {Type: jsonschema.Integer, Description: "Maximum number of results to return (1-10). Defaults to 5."},
			},
			Required:             []string{"query"},
			AdditionalProperties: false,
		},
		Gate: domain.GateNone,
	}
}

func (d *DuckDuckGo) run(ctx context.Context, args searchArgs) (string, error) {
	results, err := d.Search(ctx, args.Query, args.MaxResults)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(map[string][]Result{"results": results})
	if err != nil {
		return "", fmt.Errorf("encode search results: %w", err)
	}
	return string(payload), nil
}

// Search returns at most limit results. A 429 response backs off with a
// doubling delay, up to maxTooManyRetries times.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errEmptyQuery
	}
	if limit <= 0 {
		limit = defaultMaxResults
	}
	limit = min(limit, maxMaxResults)

	form := url.Values{}
	form.Set("q", query)

	delay := time.Second
	for attempt := 0; ; attempt++ {
		if d.Limiter != nil {
			if err := d.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("wait for search pacing: %w", err)
			}
		}

		body, status, err := d.post(ctx, form)
		if err != nil {
			return nil, err
		}
		switch {
		case status == http.StatusTooManyRequests:
			if attempt >= maxTooManyRetries {
				return nil, errRateLimited
			}
			d.logger().Warn("search rate limited, backing off", slog.Duration("delay", delay))
			if err := d.clock().Sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
		case status != http.StatusOK:
			return nil, fmt.Errorf("duckduckgo http %d", status)
		default:
			results := parseResults(body, limit)
			d.logger().Debug("web search completed", slog.String("query", query), slog.Int("results", len(results)))
			return results, nil
		}
	}
}

func (d *DuckDuckGo) post(ctx context.Context, form url.Values) (string, int, error) {
	requestCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, d.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", 0, fmt.Errorf("read search response: %w", err)
	}
	return string(body), resp.StatusCode, nil
}

func (d *DuckDuckGo) clock() ports.Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return ports.SystemClock{}
}

func (d *DuckDuckGo) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func parseResults(page string, limit int) []Result {
	matches := linkPattern.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = linkPatternHref.FindAllStringSubmatch(page, -1)
	}
	snippets := snippetPattern.FindAllStringSubmatch(page, -1)

	results := make([]Result, 0, limit)
	for i, match := range matches {
		link := strings.TrimSpace(match[1])
		title := cleanHTML(match[2])
		if link == "" || title == "" {
			continue
		}
		snippet := ""
		if i < len(snippets) {
			snippet = cleanHTML(snippets[i][1])
		}
		results = append(results, Result{Title: title, URL: link, Snippet: snippet})
		if len(results) >= limit {
			break
		}
	}

	if len(results) == 0 {
		return fallbackResults(page, limit)
	}
	return results
}

// fallbackResults keeps external links when the lite layout changes.
func fallbackResults(page string, limit int) []Result {
	results := make([]Result, 0, limit)
	seen := make(map[string]bool)
	for _, match := range anyLinkPattern.FindAllStringSubmatch(page, -1) {
		link := strings.TrimSpace(match[1])
		title := cleanHTML(match[2])
		if strings.Contains(link, "duckduckgo.com") ||
			strings.HasPrefix(link, "/") ||
			strings.HasPrefix(link, "#") ||
			strings.HasPrefix(link, "javascript:") {
			continue
		}
		if len(title) < 5 || seen[link] {
			continue
		}
		seen[link] = true
		results = append(results, Result{Title: title, URL: link})
		if len(results) >= limit {
			break
		}
	}
	return results
}

func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
