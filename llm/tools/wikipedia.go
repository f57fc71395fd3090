package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// WikipediaToolName is the name of the encyclopedia search tool.
const WikipediaToolName = "wikipedia"

const (
	defaultWikipediaEndpoint = "https://en.wikipedia.org/w/api.php"
	wikipediaUserAgent       = "searchflow/1.0 (https://github.com/BaSui01/searchflow)"
)

// WikipediaConfig configures the Wikipedia adapter.
type WikipediaConfig struct {
	Endpoint         string
	TopK             int
	ContentChars     int
	Timeout          time.Duration
	RateLimitBackoff time.Duration
	Client           *http.Client
	Observer         Observer
}

type wikiResponse struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
	Query struct {
		Pages []wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Missing bool   `json:"missing,omitempty"`
}

// NewWikipediaSearch builds the encyclopedia tool. One MediaWiki request
// searches and fetches the intro extract of the top pages.
func NewWikipediaSearch(cfg WikipediaConfig, logger *zap.Logger) *Adapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultWikipediaEndpoint
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 1
	}
	if cfg.ContentChars <= 0 {
		cfg.ContentChars = 250
	}
	src := newHTTPSource(WikipediaToolName, cfg.Client)

	fetch := func(ctx context.Context, query string) (string, error) {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("format", "json")
		params.Set("formatversion", "2")
		params.Set("generator", "search")
		params.Set("gsrsearch", TruncateExcerpt(query, maxLookupQueryChars))
		params.Set("gsrlimit", fmt.Sprint(cfg.TopK))
		params.Set("prop", "extracts")
		params.Set("exintro", "1")
		params.Set("explaintext", "1")
		params.Set("redirects", "1")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return "", NewTransportError(WikipediaToolName, err)
		}
		req.Header.Set("User-Agent", wikipediaUserAgent)

		body, err := src.do(req)
		if err != nil {
			return "", err
		}

		var resp wikiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", NewParseError(WikipediaToolName, err)
		}
		if resp.Error != nil {
			if resp.Error.Code == "ratelimited" || resp.Error.Code == "maxlag" {
				return "", NewRateLimitedError(WikipediaToolName, resp.Error.Info)
			}
			return "", &ToolError{Kind: KindTransport, Tool: WikipediaToolName, Message: resp.Error.Code + ": " + resp.Error.Info}
		}
		return TruncateExcerpt(formatWikipedia(resp.Query.Pages, cfg.TopK), cfg.ContentChars), nil
	}

	return NewAdapter(AdapterConfig{
		Name: WikipediaToolName,
		Description: "A wrapper around Wikipedia. Useful for when you need to answer general questions about people, places, " +
			"companies, facts, historical events, or other subjects. Input should be a search query.",
		Timeout:          cfg.Timeout,
		RateLimitBackoff: cfg.RateLimitBackoff,
		Observer:         cfg.Observer,
	}, fetch, logger)
}

// formatWikipedia renders pages in search-rank order.
func formatWikipedia(pages []wikiPage, topK int) string {
	kept := pages[:0:0]
	for _, p := range pages {
		if !p.Missing && strings.TrimSpace(p.Title) != "" {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Index < kept[j].Index })
	kept = CapResults(kept, topK)
	if len(kept) == 0 {
		return NoResultsFound
	}

	docs := make([]string, 0, len(kept))
	for _, p := range kept {
		docs = append(docs, fmt.Sprintf("Page: %s\nSummary: %s", p.Title, strings.TrimSpace(p.Extract)))
	}
	return strings.Join(docs, "\n\n")
}
