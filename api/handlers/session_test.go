package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/api"
	"github.com/BaSui01/searchflow/testutil/mocks"
	"github.com/BaSui01/searchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSession(t *testing.T, env *testEnv, apiKey string) api.Session {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/v1/sessions", api.CreateSessionRequest{APIKey: apiKey})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess api.Session
	resp := decodeData(t, w, &sess)
	require.True(t, resp.Success)
	return sess
}

func TestSessionHandler_CreateAndGet(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: hi"))

	sess := createSession(t, env, "")
	assert.NotEmpty(t, sess.ID)
	assert.True(t, sess.Ready)
	assert.False(t, sess.HasAPIKey)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "assistant", sess.Messages[0].Role)
	assert.Equal(t, agent.DefaultGreeting, sess.Messages[0].Content)

	w := env.do(t, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got api.Session
	decodeData(t, w, &got)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, []int{1}, env.sessions)
}

func TestSessionHandler_CreateWithoutBody(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: hi"))

	w := env.do(t, http.MethodPost, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, env.store.Len())
}

func TestSessionHandler_CreateRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: hi"))

	w := env.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{"apikey": "typo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeData(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrInvalidRequest), resp.Error.Code)
}

func TestSessionHandler_NotFound(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: hi"))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/sessions/missing"},
		{http.MethodDelete, "/api/v1/sessions/missing"},
		{http.MethodPost, "/api/v1/sessions/missing/reset"},
	} {
		w := env.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
		resp := decodeData(t, w, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, string(types.ErrSessionNotFound), resp.Error.Code)
	}
}

func TestSessionHandler_ListAndDelete(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: hi"))
	a := createSession(t, env, "")
	b := createSession(t, env, "")

	w := env.do(t, http.MethodGet, "/api/v1/sessions", nil)
	var list []api.Session
	decodeData(t, w, &list)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Empty(t, list[0].Messages)

	w = env.do(t, http.MethodDelete, "/api/v1/sessions/"+a.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, env.store.Len())
	assert.Equal(t, []int{1, 2, 1}, env.sessions)
}

func TestSessionHandler_Reset(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: 42"))
	sess := createSession(t, env, "")

	w := env.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", api.SendMessageRequest{Content: "q"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got api.Session
	decodeData(t, w, &got)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, agent.DefaultGreeting, got.Messages[0].Content)
}

func TestSessionHandler_SetAPIKey(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: ok").WithRequireKey(true))
	sess := createSession(t, env, "")
	assert.False(t, sess.Ready)

	w := env.do(t, http.MethodPut, "/api/v1/sessions/"+sess.ID+"/api-key", api.SetAPIKeyRequest{APIKey: " gsk-test "})
	require.Equal(t, http.StatusOK, w.Code)
	var got api.Session
	decodeData(t, w, &got)
	assert.True(t, got.HasAPIKey)
	assert.True(t, got.Ready)
	assert.NotContains(t, w.Body.String(), "gsk-test")

	w = env.do(t, http.MethodPut, "/api/v1/sessions/"+sess.ID+"/api-key", api.SetAPIKeyRequest{})
	decodeData(t, w, &got)
	assert.False(t, got.HasAPIKey)
}

func TestSessionHandler_WrongContentType(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: hi"))

	r := strings.NewReader(`{"api_key":"x"}`)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sessions", r)
	req.Header.Set("Content-Type", "text/plain")
	w := newRecorder()
	env.mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Zero(t, env.store.Len())
}
