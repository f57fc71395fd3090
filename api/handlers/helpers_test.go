package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/llm/tools"
	"github.com/BaSui01/searchflow/testutil/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 测试环境
// =============================================================================

type testEnv struct {
	provider *mocks.ScriptedProvider
	registry *tools.Registry
	store    *agent.SessionStore
	mux      *http.ServeMux
	queries  chan string
	sessions []int
}

func newTestEnv(t *testing.T, provider *mocks.ScriptedProvider) *testEnv {
	t.Helper()
	env := &testEnv{
		provider: provider,
		registry: tools.NewRegistry(zap.NewNop()),
		store:    agent.NewSessionStore(agent.DefaultGreeting),
		mux:      http.NewServeMux(),
		queries:  make(chan string, 16),
	}
	env.registry.MustRegister(
		mocks.NewMockTool(tools.BraveToolName, "").WithDescription("web search").
			WithFunc(func(_ context.Context, q string) (string, error) {
				env.queries <- q
				return "- Go: https://go.dev", nil
			}),
		mocks.NewMockTool(tools.WikipediaToolName, "").WithDescription("encyclopedia").
			WithFunc(func(_ context.Context, q string) (string, error) {
				env.queries <- q
				return "Page: Go\nSummary: A language.", nil
			}),
	)

	cfg := agent.DefaultConfig()
	cfg.Stream = false
	cfg.LLMMaxRetries = 0
	a, err := agent.New(provider, env.registry, cfg, agent.WithLogger(zap.NewNop()))
	require.NoError(t, err)

	sessions := NewSessionHandler(a, env.store, zap.NewNop())
	sessions.OnChange(func(n int) { env.sessions = append(env.sessions, n) })
	health := NewHealthHandler(zap.NewNop())
	health.RegisterCheck(ToolsCheck(env.registry))
	health.RegisterCheck(ProviderCheck(provider))

	Routes{
		Sessions: sessions,
		Chat:     NewChatHandler(a, env.store, []string{"*"}, zap.NewNop()),
		Tools:    NewToolsHandler(env.registry),
		Health:   health,
		Version:  health.HandleVersion("v1.2.3", "2026-01-01", "abc123"),
	}.Register(env.mux)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, r)
	return w
}

// decodeData 解出 Response.Data
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if dst != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, dst))
	}
	return raw.Response
}

func newRecorder() *httptest.ResponseRecorder { return httptest.NewRecorder() }
