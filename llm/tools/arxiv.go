package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ArxivToolName is the name of the academic-paper search tool.
const ArxivToolName = "arxiv"

const (
	defaultArxivEndpoint = "https://export.arxiv.org/api/query"
	// maxLookupQueryChars bounds queries sent to the document-lookup APIs.
	maxLookupQueryChars = 300
)

// ArxivConfig configures the arXiv adapter.
type ArxivConfig struct {
	Endpoint string
	// TopK is the number of papers fetched.
	TopK int
	// ContentChars caps the rendered observation.
	ContentChars     int
	Timeout          time.Duration
	RateLimitBackoff time.Duration
	Client           *http.Client
	Observer         Observer
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// NewArxivSearch builds the academic-paper search tool backed by the arXiv
// Atom API. arXiv throttles with 429 or 503.
func NewArxivSearch(cfg ArxivConfig, logger *zap.Logger) *Adapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultArxivEndpoint
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 1
	}
	if cfg.ContentChars <= 0 {
		cfg.ContentChars = 300
	}
	src := newHTTPSource(ArxivToolName, cfg.Client, http.StatusTooManyRequests, http.StatusServiceUnavailable)

	fetch := func(ctx context.Context, query string) (string, error) {
		params := url.Values{}
		params.Set("search_query", "all:"+TruncateExcerpt(query, maxLookupQueryChars))
		params.Set("start", "0")
		params.Set("max_results", fmt.Sprint(cfg.TopK))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return "", NewTransportError(ArxivToolName, err)
		}
		body, err := src.do(req)
		if err != nil {
			return "", err
		}

		var feed arxivFeed
		if err := xml.Unmarshal(body, &feed); err != nil {
			return "", NewParseError(ArxivToolName, err)
		}
		return TruncateExcerpt(formatArxiv(CapResults(feed.Entries, cfg.TopK)), cfg.ContentChars), nil
	}

	return NewAdapter(AdapterConfig{
		Name: ArxivToolName,
		Description: "A wrapper around Arxiv.org. Useful for when you need to answer questions about Physics, Mathematics, " +
			"Computer Science, Quantitative Biology, Quantitative Finance, Statistics, Electrical Engineering, and Economics " +
			"from scientific articles on arxiv.org. Input should be a search query.",
		Timeout:          cfg.Timeout,
		RateLimitBackoff: cfg.RateLimitBackoff,
		Observer:         cfg.Observer,
	}, fetch, logger)
}

func formatArxiv(entries []arxivEntry) string {
	if len(entries) == 0 {
		return NoResultsFound
	}
	docs := make([]string, 0, len(entries))
	for _, e := range entries {
		names := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			names = append(names, collapseSpace(a.Name))
		}
		published := strings.TrimSpace(e.Published)
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			published = t.Format("2006-01-02")
		}
		docs = append(docs, fmt.Sprintf("Published: %s\nTitle: %s\nAuthors: %s\nSummary: %s",
			published, collapseSpace(e.Title), strings.Join(names, ", "), collapseSpace(e.Summary)))
	}
	return strings.Join(docs, "\n\n")
}
