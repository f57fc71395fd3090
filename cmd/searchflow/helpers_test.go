package main

import (
	"testing"

	"github.com/BaSui01/searchflow"
	"github.com/BaSui01/searchflow/config"
	"github.com/BaSui01/searchflow/testutil/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testConfig returns a config that never touches the network.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Agent.Stream = false
	cfg.Agent.LLMMaxRetries = 0
	cfg.Server.MetricsPort = 0
	cfg.Log.Level = "error"
	cfg.Tools.Brave.Endpoint = "http://127.0.0.1:1/search"
	cfg.Tools.DuckDuckGo.Endpoint = "http://127.0.0.1:1/lite"
	cfg.Tools.Arxiv.Endpoint = "http://127.0.0.1:1/api/query"
	cfg.Tools.Wikipedia.Endpoint = "http://127.0.0.1:1/w/api.php"
	return cfg
}

func newTestApp(t *testing.T, p *mocks.ScriptedProvider) *searchflow.App {
	t.Helper()
	app, err := searchflow.New(testConfig(), searchflow.WithProvider(p), searchflow.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	return app
}
