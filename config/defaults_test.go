package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, AgentConfig{}, cfg.Agent)
	assert.NotEqual(t, LLMConfig{}, cfg.LLM)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.NotEmpty(t, cfg.Log.OutputPaths)
	assert.NotZero(t, cfg.Server.HTTPPort)
	assert.NotZero(t, cfg.Tools.MaxResults)
}

func TestDefaultAgentConfig(t *testing.T) {
	cfg := DefaultAgentConfig()
	assert.Equal(t, 15, cfg.MaxIterations)
	assert.Equal(t, 3, cfg.MaxParseRetries)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "brave_search", cfg.FallbackTool)
	assert.True(t, cfg.Stream)
	assert.Contains(t, cfg.Greeting, "search the web")
}

func TestDefaultToolsConfig(t *testing.T) {
	cfg := DefaultToolsConfig()
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Second, cfg.RateLimitBackoff)
	assert.LessOrEqual(t, 2*cfg.Timeout+cfg.RateLimitBackoff, DefaultAgentConfig().CallTimeout)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, 300, cfg.Arxiv.ContentChars)
	assert.Equal(t, 250, cfg.Wikipedia.ContentChars)
	assert.Equal(t, 1, cfg.Arxiv.TopK)
	assert.Equal(t, 1, cfg.Wikipedia.TopK)
	assert.True(t, cfg.Brave.Enabled)
	assert.Equal(t, "https://search.brave.com/search", cfg.Brave.Endpoint)
}

func TestDefaultLLMConfig(t *testing.T) {
	cfg := DefaultLLMConfig()
	assert.Equal(t, "groq", cfg.Provider)
	assert.Equal(t, "llama3-8b-8192", cfg.Model)
	assert.Empty(t, cfg.APIKey)
}

func TestDefaultServerAndTelemetry(t *testing.T) {
	s := DefaultServerConfig()
	assert.Equal(t, 8080, s.HTTPPort)
	assert.Greater(t, s.WriteTimeout, DefaultAgentConfig().RunTimeout)

	tel := DefaultTelemetryConfig()
	assert.False(t, tel.Enabled)
	assert.Equal(t, "searchflow", tel.ServiceName)
}
