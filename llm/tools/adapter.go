package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BaSui01/searchflow/llm/retry"
	"go.uber.org/zap"
)

// NoResultsFound is the observation returned when a provider has no matches.
const NoResultsFound = "No results found."

// Default adapter limits.
const (
	DefaultTimeout          = 10 * time.Second
	DefaultRateLimitBackoff = 5 * time.Second
	DefaultMaxResults       = 5
)

// Fetcher performs one provider round trip for query. It should return a
// *ToolError; other errors are classified as transport failures.
type Fetcher func(ctx context.Context, query string) (string, error)

// Observer receives adapter outcomes, typically a metrics collector.
type Observer interface {
	ObserveToolCall(tool, outcome string, d time.Duration)
	ObserveToolRetry(tool string, kind string)
}

// AdapterConfig configures the generic adapter.
type AdapterConfig struct {
	Name        string
	Description string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// RateLimitBackoff is the fixed wait before the one retry that follows
	// a RateLimited failure.
	RateLimitBackoff time.Duration
	Observer         Observer
}

// Adapter wraps a provider Fetcher behind the Tool contract: a bounded
// timeout per attempt, exactly one retry after a fixed backoff on
// RateLimited failures, and typed errors for everything else.
type Adapter struct {
	cfg    AdapterConfig
	fetch  Fetcher
	logger *zap.Logger
}

var _ Tool = (*Adapter)(nil)

// NewAdapter builds an Adapter.
func NewAdapter(cfg AdapterConfig, fetch Fetcher, logger *zap.Logger) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimitBackoff <= 0 {
		cfg.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		cfg:    cfg,
		fetch:  fetch,
		logger: logger.With(zap.String("component", "tool"), zap.String("tool", cfg.Name)),
	}
}

func (a *Adapter) Name() string        { return a.cfg.Name }
func (a *Adapter) Description() string { return a.cfg.Description }

// CallBudget covers both attempts and the backoff between them.
func (a *Adapter) CallBudget() time.Duration {
	return CallBudget(a.cfg.Timeout, a.cfg.RateLimitBackoff)
}

// CallBudget is the worst-case duration of an adapter call with the given
// per-attempt timeout and rate-limit backoff.
func CallBudget(timeout, backoff time.Duration) time.Duration {
	return 2*timeout + backoff
}

// Invoke implements Tool.
func (a *Adapter) Invoke(ctx context.Context, query string) (string, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		err := &ToolError{Kind: KindParse, Tool: a.cfg.Name, Message: "query is empty"}
		a.observe("error", start)
		return "", err
	}

	policy := retry.FixedRetryPolicy(1, a.cfg.RateLimitBackoff, IsRateLimited)
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		a.logger.Warn("tool rate limited, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if a.cfg.Observer != nil {
			a.cfg.Observer.ObserveToolRetry(a.cfg.Name, string(KindRateLimited))
		}
	}
	retryer := retry.NewBackoffRetryer(policy, a.logger)

	out, err := retry.DoWithResultTyped[string](retryer, ctx, func() (string, error) {
		return a.attempt(ctx, query)
	})
	if err != nil {
		te := a.classify(err)
		a.logger.Warn("tool failed",
			zap.String("kind", string(te.Kind)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(te))
		a.observe(string(te.Kind), start)
		return "", te
	}

	a.logger.Debug("tool invoked",
		zap.Int("chars", len(out)),
		zap.Duration("duration", time.Since(start)))
	a.observe("success", start)
	return out, nil
}

// attempt runs the fetcher with the per-attempt timeout. The buffered
// channel lets the goroutine exit even when nobody receives after a timeout.
func (a *Adapter) attempt(ctx context.Context, query string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := a.fetch(execCtx, query)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", a.classify(r.err)
		}
		return r.out, nil
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return "", NewTransportError(a.cfg.Name, ctx.Err())
		}
		return "", &ToolError{
			Kind:    KindTransport,
			Tool:    a.cfg.Name,
			Message: fmt.Sprintf("timed out after %s", a.cfg.Timeout),
			Cause:   context.DeadlineExceeded,
		}
	}
}

// classify converts any error into a *ToolError carrying this tool's name.
func (a *Adapter) classify(err error) *ToolError {
	if te, ok := AsToolError(err); ok {
		if te.Tool == "" {
			cp := *te
			cp.Tool = a.cfg.Name
			return &cp
		}
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ToolError{Kind: KindTransport, Tool: a.cfg.Name, Message: "timed out", Cause: err}
	}
	return NewTransportError(a.cfg.Name, err)
}

func (a *Adapter) observe(outcome string, start time.Time) {
	if a.cfg.Observer != nil {
		a.cfg.Observer.ObserveToolCall(a.cfg.Name, outcome, time.Since(start))
	}
}

// CapResults returns at most n items in their original order.
func CapResults[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// TruncateExcerpt cuts s to at most n runes. n <= 0 disables the cap.
func TruncateExcerpt(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
