package tools

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Tool is a named search capability with a `query -> text` contract.
// Implementations are immutable once registered.
type Tool interface {
	Name() string
	Description() string
	// Invoke runs the tool. Failures are returned as *ToolError so the
	// caller can feed them back to the LLM as an observation.
	Invoke(ctx context.Context, query string) (string, error)
}

// Budgeted is implemented by tools whose worst-case Invoke, retries
// included, can outlast a caller's default per-call timeout.
type Budgeted interface {
	CallBudget() time.Duration
}

// ToolErrorKind classifies adapter failures. Retry decisions match on Kind.
type ToolErrorKind string

const (
	KindRateLimited ToolErrorKind = "rate_limited"
	KindTransport   ToolErrorKind = "transport"
	KindParse       ToolErrorKind = "parse"
)

// ToolError is the typed failure returned by adapters.
type ToolError struct {
	Kind    ToolErrorKind
	Tool    string
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("tool %s failed because %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// NewRateLimitedError builds a RateLimited ToolError.
func NewRateLimitedError(tool, msg string) *ToolError {
	return &ToolError{Kind: KindRateLimited, Tool: tool, Message: msg}
}

// NewTransportError builds a Transport ToolError wrapping cause.
func NewTransportError(tool string, cause error) *ToolError {
	msg := "request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &ToolError{Kind: KindTransport, Tool: tool, Message: msg, Cause: cause}
}

// NewParseError builds a Parse ToolError wrapping cause.
func NewParseError(tool string, cause error) *ToolError {
	msg := "unreadable response"
	if cause != nil {
		msg = "unreadable response: " + cause.Error()
	}
	return &ToolError{Kind: KindParse, Tool: tool, Message: msg, Cause: cause}
}

// AsToolError extracts a *ToolError from err.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsRateLimited reports whether err is a RateLimited ToolError.
func IsRateLimited(err error) bool {
	te, ok := AsToolError(err)
	return ok && te.Kind == KindRateLimited
}

// Func adapts a plain function into a Tool. Mostly useful in tests and for
// tools without provider-specific plumbing.
type Func struct {
	ToolName        string
	ToolDescription string
	Fn              func(ctx context.Context, query string) (string, error)
}

func (f *Func) Name() string        { return f.ToolName }
func (f *Func) Description() string { return f.ToolDescription }

func (f *Func) Invoke(ctx context.Context, query string) (string, error) {
	return f.Fn(ctx, query)
}
