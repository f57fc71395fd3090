package metrics

import (
	"testing"
	"time"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var (
	_ agent.MetricsRecorder = (*Collector)(nil)
	_ tools.Observer        = (*Collector)(nil)
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollectorWithRegistry("test", prometheus.NewRegistry(), zap.NewNop())
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := newTestCollector(t)

	c.RecordHTTPRequest("GET", "/api/v1/tools", 200, 100*time.Millisecond, 2048)
	c.RecordHTTPRequest("GET", "/api/v1/tools", 204, 50*time.Millisecond, 0)
	c.RecordHTTPRequest("POST", "/api/v1/sessions", 500, 10*time.Millisecond, 64)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/api/v1/tools", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/api/v1/sessions", "5xx")))
}

func TestCollector_RecordLLMCall(t *testing.T) {
	c := newTestCollector(t)

	c.RecordLLMCall("groq", "llama3-8b-8192", "success", 500*time.Millisecond, llm.ChatUsage{PromptTokens: 100, CompletionTokens: 50})
	c.RecordLLMCall("groq", "llama3-8b-8192", "error", time.Second, llm.ChatUsage{})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.llmRequestsTotal.WithLabelValues("groq", "llama3-8b-8192", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.llmRequestsTotal.WithLabelValues("groq", "llama3-8b-8192", "error")))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.llmTokensUsed.WithLabelValues("groq", "llama3-8b-8192", "prompt")))
	assert.Equal(t, 50.0, testutil.ToFloat64(c.llmTokensUsed.WithLabelValues("groq", "llama3-8b-8192", "completion")))
}

func TestCollector_ToolMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveToolCall("wikipedia", "success", 200*time.Millisecond)
	c.ObserveToolCall("wikipedia", "rate_limited", 5*time.Second)
	c.ObserveToolRetry("wikipedia", "rate_limited")
	c.RecordFallback("google", "brave_search")
	c.RecordFallback("bing", "brave_search")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolCallsTotal.WithLabelValues("wikipedia", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolRetriesTotal.WithLabelValues("wikipedia", "rate_limited")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.fallbacksTotal.WithLabelValues("brave_search")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.toolCallDuration))
}

func TestCollector_AgentMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.RecordRun("answered", 2, 3*time.Second)
	c.RecordRun("terminated", 15, time.Minute)
	c.RecordParseFailure()
	c.RecordStateTransition("await_llm", "act")
	c.RecordStateTransition("await_llm", "act")
	c.SetActiveSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("terminated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parseFailuresTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.agentStateTransitions.WithLabelValues("await_llm", "act")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sessionsActive))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"}, {302, "3xx"}, {404, "4xx"}, {503, "5xx"}, {0, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCode(tt.code))
	}
}
