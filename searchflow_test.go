package searchflow

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/config"
	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/tools"
	"github.com/BaSui01/searchflow/testutil"
	"github.com/BaSui01/searchflow/testutil/fixtures"
	"github.com/BaSui01/searchflow/testutil/mocks"
	"github.com/BaSui01/searchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(wikiURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Agent.Stream = false
	cfg.Agent.LLMMaxRetries = 0
	cfg.Tools.RateLimitBackoff = 10 * time.Millisecond
	cfg.Tools.Brave.Endpoint = "http://127.0.0.1:1/unused"
	cfg.Tools.DuckDuckGo.Enabled = false
	cfg.Tools.Arxiv.Enabled = false
	cfg.Tools.Wikipedia.Endpoint = wikiURL
	return cfg
}

func TestNew_WiresToolsAndRunsTurn(t *testing.T) {
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "machine learning", r.URL.Query().Get("gsrsearch"))
		fmt.Fprint(w, fixtures.WikipediaJSON(fixtures.WikiPage{Title: "Machine learning", Extract: "ML studies algorithms."}))
	}))
	t.Cleanup(wiki.Close)

	provider := mocks.NewScriptedProvider(
		fixtures.SearchThenAnswer(tools.WikipediaToolName, "machine learning", "ML studies algorithms.")...)
	app, err := New(testConfig(wiki.URL), WithProvider(provider), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	assert.Equal(t, []string{tools.BraveToolName, tools.WikipediaToolName}, app.Registry.Names())
	assert.Same(t, provider, app.Provider)

	sess := app.Sessions.Create("")
	res, err := app.Agent.Chat(testutil.TestContext(t), sess, "What is machine learning?", agent.Discard)
	require.NoError(t, err)
	assert.Equal(t, agent.OutcomeAnswered, res.Outcome)
	assert.Equal(t, "ML studies algorithms.", res.Answer)
	assert.Equal(t, 1, res.ToolCalls)
	assert.Equal(t, 2, provider.CallCount())
}

func TestNew_ExtraTools(t *testing.T) {
	echo := mocks.NewMockTool("echo", "pong")
	app, err := New(testConfig("http://127.0.0.1:1"), WithProvider(mocks.NewScriptedProvider(fixtures.ReActFinal("", "hi"))), WithTools(echo))
	require.NoError(t, err)
	assert.True(t, app.Registry.Has("echo"))
	assert.Equal(t, 3, app.Registry.Len())

	_, err = New(testConfig("http://127.0.0.1:1"), WithProvider(mocks.NewScriptedProvider("x")), WithTools(echo, echo))
	assert.True(t, types.IsErrorCode(err, types.ErrDuplicateTool))
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "no tools", mutate: func(c *config.Config) {
			c.Tools.Brave.Enabled = false
			c.Tools.DuckDuckGo.Enabled = false
			c.Tools.Arxiv.Enabled = false
			c.Tools.Wikipedia.Enabled = false
		}},
		{name: "zero iterations", mutate: func(c *config.Config) { c.Agent.MaxIterations = 0 }},
		{name: "unknown provider", mutate: func(c *config.Config) { c.LLM.Provider = "carrier-pigeon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			_, err := New(cfg, WithProvider(mocks.NewScriptedProvider("x")))
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))
		})
	}
}

func TestNew_FallbackToolMustBeRegistered(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Tools.Brave.Enabled = false
	_, err := New(cfg, WithProvider(mocks.NewScriptedProvider("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brave_search")
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.LLMConfig{Provider: "groq", Model: "llama3-8b-8192"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "groq", p.Name())
	assert.True(t, p.RequiresCredential())
	assert.False(t, p.HasCredential(context.Background()))
	assert.True(t, p.HasCredential(llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "gsk_test"})))

	p, err = NewProvider(config.LLMConfig{Provider: "openai-compatible", BaseURL: "http://localhost:11434/v1", Model: "llama3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai-compatible", p.Name())
	assert.False(t, p.RequiresCredential())

	_, err = NewProvider(config.LLMConfig{Provider: "nope"}, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))
}

func TestAgentConfig(t *testing.T) {
	ac := config.DefaultAgentConfig()
	ac.Temperature = 0.5
	got := AgentConfig(ac, config.LLMConfig{Model: "llama3-70b-8192"})
	assert.Equal(t, float32(0.5), got.Temperature)
	assert.Equal(t, "llama3-70b-8192", got.Model)
	assert.Equal(t, ac.MaxIterations, got.MaxIterations)
	assert.Equal(t, ac.FallbackTool, got.FallbackTool)
	assert.Equal(t, ac.Greeting, got.Greeting)
	require.NoError(t, got.Validate())
}
