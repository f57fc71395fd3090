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
)

// BraveToolName is the name of the primary web-search tool.
const BraveToolName = "brave_search"

const defaultBraveEndpoint = "https://search.brave.com/search"

// BraveConfig configures the Brave web-search adapter.
type BraveConfig struct {
	Endpoint         string
	MaxResults       int
	Timeout          time.Duration
	RateLimitBackoff time.Duration
	Client           *http.Client
	Observer         Observer
}

// NewBraveSearch builds the generic web-search tool. It scrapes Brave's
// HTML results page and returns the first MaxResults result links.
func NewBraveSearch(cfg BraveConfig, logger *zap.Logger) *Adapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultBraveEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	src := newHTTPSource(BraveToolName, cfg.Client)

	fetch := func(ctx context.Context, query string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"?q="+url.QueryEscape(query), nil)
		if err != nil {
			return "", NewTransportError(BraveToolName, err)
		}
		req.Header.Set("User-Agent", BrowserUserAgent)
		req.Header.Set("Accept", "text/html")

		body, err := src.do(req)
		if err != nil {
			return "", err
		}
		results, err := parseBraveResults(body)
		if err != nil {
			return "", NewParseError(BraveToolName, err)
		}
		return FormatResults(results, cfg.MaxResults), nil
	}

	return NewAdapter(AdapterConfig{
		Name:             BraveToolName,
		Description:      "A web search engine. Useful for current events and general questions. Input should be a search query.",
		Timeout:          cfg.Timeout,
		RateLimitBackoff: cfg.RateLimitBackoff,
		Observer:         cfg.Observer,
	}, fetch, logger)
}

// parseBraveResults collects every a.result-title link in document order.
func parseBraveResults(body []byte) ([]SearchResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var results []SearchResult
	walkHTML(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" || !hasClass(n, "result-title") {
			return
		}
		href := attr(n, "href")
		if href == "" {
			return
		}
		results = append(results, SearchResult{
			Title: collapseSpace(textContent(n)),
			URL:   href,
		})
	})
	return results, nil
}

// walkHTML visits n and its descendants depth-first in document order.
func walkHTML(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, visit)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walkHTML(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}
