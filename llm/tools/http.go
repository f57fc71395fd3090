package tools

import (
	"fmt"
	"io"
	"net/http"

	"github.com/BaSui01/searchflow/internal/tlsutil"
)

// BrowserUserAgent is sent to providers that reject non-browser clients.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes caps provider responses read into memory.
const maxBodyBytes = 4 << 20

// httpSource performs provider requests and classifies HTTP failures.
type httpSource struct {
	tool   string
	client *http.Client
	// rateLimitStatus lists statuses the provider uses to signal throttling.
	rateLimitStatus []int
}

func newHTTPSource(tool string, client *http.Client, rateLimitStatus ...int) httpSource {
	if client == nil {
		client = tlsutil.SecureHTTPClient(DefaultTimeout)
	}
	if len(rateLimitStatus) == 0 {
		rateLimitStatus = []int{http.StatusTooManyRequests}
	}
	return httpSource{tool: tool, client: client, rateLimitStatus: rateLimitStatus}
}

// do executes req and returns the body of a 200 response.
func (s httpSource) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewTransportError(s.tool, err)
	}
	defer resp.Body.Close()

	for _, st := range s.rateLimitStatus {
		if resp.StatusCode == st {
			msg := fmt.Sprintf("rate limited (http %d)", resp.StatusCode)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				msg += ", retry after " + ra
			}
			return nil, NewRateLimitedError(s.tool, msg)
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ToolError{
			Kind:    KindTransport,
			Tool:    s.tool,
			Message: fmt.Sprintf("unexpected http status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, NewTransportError(s.tool, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}
