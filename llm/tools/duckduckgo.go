package tools

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// DuckDuckGoToolName is the name of the rate-limited web-search tool.
const DuckDuckGoToolName = "duckduckgo_search"

const defaultDuckDuckGoEndpoint = "https://lite.duckduckgo.com/lite/"

// DuckDuckGoConfig configures the DuckDuckGo lite adapter.
type DuckDuckGoConfig struct {
	Endpoint   string
	MaxResults int
	// RPS is the client-side request rate shared by every caller of the
	// adapter. Zero means one request per second.
	RPS              float64
	Timeout          time.Duration
	RateLimitBackoff time.Duration
	Client           *http.Client
	Observer         Observer
}

// NewDuckDuckGoSearch builds the rate-limited web-search tool. Requests are
// paced by a token bucket; DuckDuckGo signals throttling with 429 or 202.
func NewDuckDuckGoSearch(cfg DuckDuckGoConfig, logger *zap.Logger) *Adapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultDuckDuckGoEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	src := newHTTPSource(DuckDuckGoToolName, cfg.Client, http.StatusTooManyRequests, http.StatusAccepted)

	fetch := func(ctx context.Context, query string) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", NewTransportError(DuckDuckGoToolName, err)
		}

		form := url.Values{}
		form.Set("q", query)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return "", NewTransportError(DuckDuckGoToolName, err)
		}
		req.Header.Set("User-Agent", BrowserUserAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		body, err := src.do(req)
		if err != nil {
			return "", err
		}
		results, err := parseDuckDuckGoResults(body)
		if err != nil {
			return "", NewParseError(DuckDuckGoToolName, err)
		}
		return FormatResults(results, cfg.MaxResults), nil
	}

	return NewAdapter(AdapterConfig{
		Name:             DuckDuckGoToolName,
		Description:      "A privacy-focused web search engine. Useful when other web search fails. Input should be a search query.",
		Timeout:          cfg.Timeout,
		RateLimitBackoff: cfg.RateLimitBackoff,
		Observer:         cfg.Observer,
	}, fetch, logger)
}

// parseDuckDuckGoResults pairs a.result-link anchors with the
// td.result-snippet cells that follow them.
func parseDuckDuckGoResults(body []byte) ([]SearchResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var results []SearchResult
	walkHTML(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch {
		case n.Data == "a" && hasClass(n, "result-link"):
			href := attr(n, "href")
			if href == "" {
				return
			}
			results = append(results, SearchResult{
				Title: collapseSpace(textContent(n)),
				URL:   href,
			})
		case n.Data == "td" && hasClass(n, "result-snippet"):
			if len(results) > 0 && results[len(results)-1].Snippet == "" {
				results[len(results)-1].Snippet = collapseSpace(textContent(n))
			}
		}
	})
	return results, nil
}
