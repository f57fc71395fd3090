package tools

import (
	"strings"
)

// SearchResult is one web-search hit in provider order.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// FormatResults renders up to max results, one block per hit, or the
// NoResultsFound sentinel when there are none.
func FormatResults(results []SearchResult, max int) string {
	results = CapResults(results, max)
	if len(results) == 0 {
		return NoResultsFound
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		if r.Title != "" {
			b.WriteString(r.Title)
			b.WriteString(": ")
		}
		b.WriteString(r.URL)
		if r.Snippet != "" {
			b.WriteString("\n  ")
			b.WriteString(r.Snippet)
		}
	}
	return b.String()
}

// collapseSpace joins all whitespace runs into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
