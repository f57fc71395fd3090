package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/searchflow/llm/tools"
	"github.com/BaSui01/searchflow/types"
)

// Defaults for the loop limits. Every limit is explicit; there is no
// "unbounded" setting.
const (
	DefaultMaxIterations   = 15
	DefaultMaxParseRetries = 3
	DefaultCallTimeout     = 30 * time.Second
	DefaultRunTimeout      = 5 * time.Minute
	DefaultLLMMaxRetries   = 2
	DefaultGreeting        = "Hi! I'm a chatbot who can search the web. How can I help you?"
)

// Config controls one AgentLoop.
type Config struct {
	// MaxIterations caps LLM calls per run.
	MaxIterations int `json:"max_iterations"`
	// MaxParseRetries is how many unparsable LLM outputs a run tolerates.
	MaxParseRetries int `json:"max_parse_retries"`
	// CallTimeout bounds each LLM call and each tool invocation.
	CallTimeout time.Duration `json:"call_timeout"`
	// RunTimeout bounds a whole run.
	RunTimeout time.Duration `json:"run_timeout"`
	// FallbackTool is invoked when the LLM names an unknown tool.
	FallbackTool string `json:"fallback_tool"`
	// Stream requests token streaming from the provider.
	Stream bool `json:"stream"`
	// NativeTools also offers the registry as function-calling tools.
	NativeTools bool `json:"native_tools"`
	// MaxHistoryTokens bounds transcript history in the prompt. 0 keeps all.
	MaxHistoryTokens int `json:"max_history_tokens"`
	// LLMMaxRetries retries retryable provider errors with backoff.
	LLMMaxRetries int `json:"llm_max_retries"`

	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Greeting seeds every new transcript. Empty disables it.
	Greeting string `json:"greeting"`
}

// DefaultConfig returns the loop defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:   DefaultMaxIterations,
		MaxParseRetries: DefaultMaxParseRetries,
		CallTimeout:     DefaultCallTimeout,
		RunTimeout:      DefaultRunTimeout,
		FallbackTool:    tools.BraveToolName,
		Stream:          true,
		LLMMaxRetries:   DefaultLLMMaxRetries,
		Greeting:        DefaultGreeting,
	}
}

// Validate rejects non-positive limits.
func (c Config) Validate() error {
	var errs []string
	if c.MaxIterations <= 0 {
		errs = append(errs, "max_iterations must be positive")
	}
	if c.MaxParseRetries < 0 {
		errs = append(errs, "max_parse_retries must not be negative")
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, "call_timeout must be positive")
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, "run_timeout must be positive")
	}
	if strings.TrimSpace(c.FallbackTool) == "" {
		errs = append(errs, "fallback_tool is required")
	}
	if c.MaxHistoryTokens < 0 {
		errs = append(errs, "max_history_tokens must not be negative")
	}
	if c.LLMMaxRetries < 0 {
		errs = append(errs, "llm_max_retries must not be negative")
	}
	if len(errs) > 0 {
		return types.NewError(types.ErrInvalidConfig, fmt.Sprintf("invalid agent config: %s", strings.Join(errs, "; ")))
	}
	return nil
}
