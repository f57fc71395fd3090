package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		logger       *zap.Logger
		wantEndpoint string
		wantModels   string
	}{
		{
			name:         "all defaults applied",
			cfg:          Config{ProviderName: "test"},
			wantEndpoint: "/v1/chat/completions",
			wantModels:   "/v1/models",
		},
		{
			name: "custom endpoint paths preserved",
			cfg: Config{
				ProviderName:   "custom",
				EndpointPath:   "/api/chat",
				ModelsEndpoint: "/api/models",
			},
			logger:       zap.NewNop(),
			wantEndpoint: "/api/chat",
			wantModels:   "/api/models",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, tt.logger)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantEndpoint, p.Cfg.EndpointPath)
			assert.Equal(t, tt.wantModels, p.Cfg.ModelsEndpoint)
			assert.Equal(t, tt.cfg.ProviderName, p.Name())
			assert.NotNil(t, p.Client)
			assert.NotNil(t, p.Logger)
		})
	}
}

func TestNew_Timeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, New(Config{ProviderName: "t"}, nil).Client.Timeout)
	assert.Equal(t, 10*time.Second, New(Config{ProviderName: "t", Timeout: 10 * time.Second}, nil).Client.Timeout)
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

func TestProvider_HasCredential(t *testing.T) {
	p := New(Config{ProviderName: "test", RequireAPIKey: true}, nil)
	assert.True(t, p.RequiresCredential())
	assert.False(t, p.HasCredential(context.Background()))

	ctx := llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "session-key"})
	assert.True(t, p.HasCredential(ctx))

	p2 := New(Config{ProviderName: "test", APIKey: "cfg"}, nil)
	assert.True(t, p2.HasCredential(context.Background()))
}

func TestProvider_Completion_MissingKey(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", BaseURL: server.URL, RequireAPIKey: true}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUnauthorized, llmErr.Code)
	assert.Zero(t, hits)
}

func TestProvider_Completion_CredentialOverride(t *testing.T) {
	var capturedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		writeCompletion(w, "ok")
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "cfg-key", BaseURL: server.URL}, zap.NewNop())

	ctx := llm.WithCredentialOverride(context.Background(), llm.CredentialOverride{APIKey: "override-key"})
	_, err := p.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer override-key", capturedAuth)
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
		ID:    "resp-1",
		Model: "llama-test",
		Choices: []providers.OpenAICompatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message:      providers.OpenAICompatMessage{Role: "assistant", Content: content},
			},
		},
		Usage:   &providers.OpenAICompatUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
		Created: 1700000000,
	})
}

func TestProvider_Completion_Success(t *testing.T) {
	var got providers.OpenAICompatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "Hello!")
	}))
	t.Cleanup(server.Close)

	p := New(Config{
		ProviderName:  "test",
		APIKey:        "test-key",
		BaseURL:       server.URL,
		FallbackModel: "fallback-model",
	}, zap.NewNop())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
		Stop:     []string{"\nObservation:"},
	})
	require.NoError(t, err)
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, "test", resp.Provider)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Hello!", resp.Choices[0].Message.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.False(t, resp.CreatedAt.IsZero())

	assert.Equal(t, "fallback-model", got.Model)
	assert.Equal(t, []string{"\nObservation:"}, got.Stop)
	assert.Nil(t, got.ToolChoice)
}

func TestProvider_Completion_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"r","model":"m","choices":[{"index":0,"finish_reason":"tool_calls",
			"message":{"role":"assistant","tool_calls":[{"id":"call_1","type":"function",
			"function":{"name":"wikipedia","arguments":"{\"query\":\"Go\"}"}}]}}]}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "k", BaseURL: server.URL}, nil)
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages:   []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
		Tools:      []llm.ToolSchema{{Name: "wikipedia"}},
		ToolChoice: "auto",
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	tc := resp.Choices[0].Message.ToolCalls[0]
	assert.Equal(t, "wikipedia", tc.Name)
	assert.JSONEq(t, `{"query":"Go"}`, string(tc.Arguments))
}

func TestProvider_Completion_HTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantCode   llm.ErrorCode
		retryable  bool
	}{
		{"401 unauthorized", http.StatusUnauthorized, `{"error":{"message":"invalid key","type":"auth"}}`, llm.ErrUnauthorized, false},
		{"429 rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, llm.ErrRateLimited, true},
		{"500 server error", http.StatusInternalServerError, `{"error":{"message":"oops"}}`, llm.ErrUpstreamError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(server.Close)

			p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, zap.NewNop())
			_, err := p.Completion(context.Background(), &llm.ChatRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
			})
			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantCode, llmErr.Code)
			assert.Equal(t, tt.retryable, llmErr.Retryable)
		})
	}
}

func TestProvider_Completion_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "key", BaseURL: server.URL}, zap.NewNop())
	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

func TestProvider_Stream_CollectsDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body providers.OpenAICompatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Thought: ", "I know.", "\nFinal Answer: 42"} {
			fmt.Fprintf(w, "data: {\"id\":\"s1\",\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"model\":\"m\",\"choices\":[{\"index\":0,\"finish_reason\":\"stop\",\"delta\":{}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "k", BaseURL: server.URL}, nil)
	ch, err := p.Stream(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)

	var deltas []string
	resp, err := llm.CollectStream(context.Background(), ch, func(s string) { deltas = append(deltas, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"Thought: ", "I know.", "\nFinal Answer: 42"}, deltas)
	assert.Equal(t, "Thought: I know.\nFinal Answer: 42", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, "test", resp.Provider)
}

func TestProvider_Stream_ToolCallFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","type":"function","function":{"name":"arxiv","arguments":"{\"que"}}]}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ry\":\"llm\"}"}}]}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "k", BaseURL: server.URL}, nil)
	ch, err := p.Stream(context.Background(), &llm.ChatRequest{})
	require.NoError(t, err)

	resp, err := llm.CollectStream(context.Background(), ch, nil)
	require.NoError(t, err)
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "arxiv", resp.Choices[0].Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"llm"}`, string(resp.Choices[0].Message.ToolCalls[0].Arguments))
}

func TestStreamSSE_MalformedChunk(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: {broken\n\n"))
	ch := StreamSSE(context.Background(), body, "test")

	chunk, ok := <-ch
	require.True(t, ok)
	require.NotNil(t, chunk.Err)
	assert.Equal(t, llm.ErrUpstreamError, chunk.Err.Code)

	_, ok = <-ch
	assert.False(t, ok)
}

func TestStreamSSE_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	ch := StreamSSE(ctx, pr, "test")

	go func() {
		fmt.Fprint(pw, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"a\"}}]}\n\n")
	}()
	cancel()
	pw.Close()

	for range ch {
	}
}

// ---------------------------------------------------------------------------
// HealthCheck
// ---------------------------------------------------------------------------

func TestProvider_HealthCheck(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"down"}}`)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	t.Cleanup(server.Close)

	p := New(Config{ProviderName: "test", APIKey: "k", BaseURL: server.URL}, nil)
	st, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Healthy)

	healthy = false
	st, err = p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, st.Healthy)
	assert.Contains(t, err.Error(), "down")
}
