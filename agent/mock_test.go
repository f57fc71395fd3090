package agent

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/tools"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockProvider 模拟 LLM Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.ChatResponse), args.Error(1)
}

func (m *MockProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan llm.StreamChunk), args.Error(1)
}

func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.HealthStatus), args.Error(1)
}

func (m *MockProvider) Name() string { return m.Called().String(0) }

func (m *MockProvider) RequiresCredential() bool { return m.Called().Bool(0) }

func (m *MockProvider) HasCredential(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

// reply is one scripted LLM turn.
type reply struct {
	content   string
	toolCalls []llm.ToolCall
	err       error
	// block waits for ctx to be done before answering.
	block bool
}

// scriptedProvider answers LLM calls from a fixed script and records every
// request. Once the script runs out the last reply repeats.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []reply
	requests []*llm.ChatRequest
	calls    int

	requireKey bool
	apiKey     string
	chunkSize  int
}

func newScripted(replies ...reply) *scriptedProvider {
	return &scriptedProvider{replies: replies, chunkSize: 7}
}

func (p *scriptedProvider) next(req *llm.ChatRequest) reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	i := p.calls
	p.calls++
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	return p.replies[i]
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *scriptedProvider) Requests() []*llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*llm.ChatRequest(nil), p.requests...)
}

func (p *scriptedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	r := p.next(req)
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &llm.ChatResponse{
		Provider: p.Name(),
		Model:    "scripted-1",
		Choices: []llm.ChatChoice{{
			Message: llm.Message{Role: llm.RoleAssistant, Content: r.content, ToolCalls: r.toolCalls},
		}},
		Usage: llm.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	r := p.next(req)
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		content := []rune(r.content)
		for start := 0; start < len(content); start += p.chunkSize {
			end := start + p.chunkSize
			if end > len(content) {
				end = len(content)
			}
			select {
			case ch <- llm.StreamChunk{Provider: p.Name(), Model: "scripted-1", Delta: llm.Message{Role: llm.RoleAssistant, Content: string(content[start:end])}}:
			case <-ctx.Done():
				return
			}
		}
		if len(r.toolCalls) > 0 {
			select {
			case ch <- llm.StreamChunk{Delta: llm.Message{Role: llm.RoleAssistant, ToolCalls: r.toolCalls}}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

func (p *scriptedProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) RequiresCredential() bool { return p.requireKey }

func (p *scriptedProvider) HasCredential(ctx context.Context) bool {
	return llm.ResolveAPIKey(ctx, p.apiKey) != ""
}

// countingTool records invocations.
type countingTool struct {
	mu      sync.Mutex
	name    string
	output  string
	err     error
	queries []string
}

func (t *countingTool) Name() string        { return t.name }
func (t *countingTool) Description() string { return "look things up in " + t.name }

func (t *countingTool) Invoke(_ context.Context, query string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queries = append(t.queries, query)
	if t.err != nil {
		return "", t.err
	}
	return t.output, nil
}

func (t *countingTool) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queries)
}

func (t *countingTool) Queries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.queries...)
}

// fixture is the standard four-tool setup.
type fixture struct {
	brave, ddg, arxiv, wiki *countingTool
	registry                *tools.Registry
}

func newFixture() *fixture {
	f := &fixture{
		brave: &countingTool{name: tools.BraveToolName, output: "- Brave: https://example.com"},
		ddg:   &countingTool{name: tools.DuckDuckGoToolName, output: "- DDG: https://example.org"},
		arxiv: &countingTool{name: tools.ArxivToolName, output: "Published: 2020-01-01\nTitle: Paper"},
		wiki:  &countingTool{name: tools.WikipediaToolName, output: "Page: Machine learning\nSummary: ML studies algorithms."},
	}
	f.registry = tools.NewRegistry(zap.NewNop())
	f.registry.MustRegister(f.brave, f.ddg, f.arxiv, f.wiki)
	return f
}

// testConfig is DefaultConfig without streaming or LLM retries.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Stream = false
	cfg.LLMMaxRetries = 0
	return cfg
}

// recordingMetrics implements MetricsRecorder.
type recordingMetrics struct {
	mu            sync.Mutex
	llmCalls      []string
	runs          []string
	transitions   []string
	fallbacks     []string
	parseFailures int
}

func (m *recordingMetrics) RecordLLMCall(_, _, status string, _ time.Duration, _ llm.ChatUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.llmCalls = append(m.llmCalls, status)
}

func (m *recordingMetrics) RecordRun(outcome string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, outcome)
}

func (m *recordingMetrics) RecordStateTransition(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+"->"+to)
}

func (m *recordingMetrics) RecordFallback(requested, fallback string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, requested+"->"+fallback)
}

func (m *recordingMetrics) RecordParseFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parseFailures++
}
