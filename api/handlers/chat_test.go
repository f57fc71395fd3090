package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/api"
	"github.com/BaSui01/searchflow/testutil/mocks"
	"github.com/BaSui01/searchflow/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var searchThenAnswer = []string{
	"Thought: I should look it up\nAction: wikipedia\nAction Input: Go language",
	"Thought: I now know the final answer\nFinal Answer: Go is a language.",
}

func TestChatHandler_HandleMessage(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider(searchThenAnswer...))
	sess := createSession(t, env, "")

	w := env.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", api.SendMessageRequest{Content: "What is Go?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var turn api.TurnResponse
	decodeData(t, w, &turn)
	assert.Equal(t, sess.ID, turn.SessionID)
	assert.Equal(t, string(agent.OutcomeAnswered), turn.Outcome)
	assert.Equal(t, "Go is a language.", turn.Answer)
	assert.Equal(t, 1, turn.ToolCalls)
	assert.Equal(t, 2, turn.Iterations)
	assert.Equal(t, "Go language", <-env.queries)

	stored, err := env.store.Get(sess.ID)
	require.NoError(t, err)
	msgs := stored.Transcript().Snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, types.RoleUser, msgs[1].Role)
	assert.Equal(t, "What is Go?", msgs[1].Content)
	assert.Equal(t, "Go is a language.", msgs[2].Content)
}

func TestChatHandler_HandleMessage_Errors(t *testing.T) {
	tests := []struct {
		name       string
		requireKey bool
		body       any
		wantStatus int
		wantCode   types.ErrorCode
		wantMsg    string
	}{
		{
			name:       "missing credential",
			requireKey: true,
			body:       api.SendMessageRequest{Content: "hi"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   types.ErrCredentialMissing,
			wantMsg:    agent.CredentialPrompt,
		},
		{
			name:       "blank content",
			body:       api.SendMessageRequest{Content: "   "},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: x").WithRequireKey(tt.requireKey))
			sess := createSession(t, env, "")

			w := env.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeData(t, w, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error.Message)
			}

			// transcript untouched
			stored, _ := env.store.Get(sess.ID)
			assert.Equal(t, 1, stored.Transcript().Len())
		})
	}
}

func TestChatHandler_SessionKeyUnblocksTurn(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: ok").WithRequireKey(true))
	sess := createSession(t, env, "gsk-session")
	assert.True(t, sess.Ready)

	w := env.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", api.SendMessageRequest{Content: "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	var turn api.TurnResponse
	decodeData(t, w, &turn)
	assert.Equal(t, "ok", turn.Answer)
}

// sseEvent 是一个解析后的 SSE 事件
type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var (
		events []sseEvent
		cur    sseEvent
	)
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.data != "" {
				events = append(events, cur)
			}
			cur = sseEvent{}
		}
	}
	return events
}

func TestChatHandler_HandleStream(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider(searchThenAnswer...))
	sess := createSession(t, env, "")

	w := env.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages/stream", api.SendMessageRequest{Content: "What is Go?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := readSSE(t, w.Body.String())
	require.GreaterOrEqual(t, len(events), 3)

	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, ev.name)
	}
	assert.Equal(t, []string{"thought", "action", "observation", "thought", "final", "result", ""}, kinds)

	var final agent.Event
	require.NoError(t, json.Unmarshal([]byte(events[4].data), &final))
	assert.True(t, final.Final)
	assert.Equal(t, "Go is a language.", final.Text)

	var turn api.TurnResponse
	require.NoError(t, json.Unmarshal([]byte(events[5].data), &turn))
	assert.Equal(t, "Go is a language.", turn.Answer)
	assert.Equal(t, "[DONE]", events[6].data)
}

func TestChatHandler_HandleStream_CredentialMissingIsJSON(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: x").WithRequireKey(true))
	sess := createSession(t, env, "")

	w := env.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages/stream", api.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	resp := decodeData(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, agent.CredentialPrompt, resp.Error.Message)
}

func TestChatHandler_HandleStream_FallbackWarning(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider(
		"Action: google\nAction Input: golang",
		"Final Answer: done",
	))
	sess := createSession(t, env, "")

	w := env.do(t, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages/stream", api.SendMessageRequest{Content: "q"})
	require.Equal(t, http.StatusOK, w.Code)

	warnings := 0
	for _, ev := range readSSE(t, w.Body.String()) {
		if ev.name == string(agent.EventWarning) {
			warnings++
		}
	}
	assert.Equal(t, 1, warnings)
	assert.Equal(t, "golang", <-env.queries)
}

func TestChatHandler_WebSocket(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider(searchThenAnswer...))
	sess := createSession(t, env, "")
	srv := httptest.NewServer(env.mux)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + sess.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	require.NoError(t, wsjson.Write(ctx, conn, api.WSClientMessage{Type: api.WSTypeMessage, Content: "What is Go?"}))

	var kinds []agent.EventKind
	for {
		var msg api.WSServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == "event" {
			require.NotNil(t, msg.Event)
			kinds = append(kinds, msg.Event.Kind)
			continue
		}
		require.Equal(t, api.StreamEventResult, msg.Type)
		require.NotNil(t, msg.Result)
		assert.Equal(t, "Go is a language.", msg.Result.Answer)
		break
	}
	assert.Equal(t, []agent.EventKind{
		agent.EventThought, agent.EventAction, agent.EventObservation, agent.EventThought, agent.EventFinal,
	}, kinds)

	require.NoError(t, wsjson.Write(ctx, conn, api.WSClientMessage{Type: api.WSTypeReset}))
	var msg api.WSServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, api.WSTypeReset, msg.Type)

	require.NoError(t, wsjson.Write(ctx, conn, api.WSClientMessage{Type: "bogus"}))
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, api.StreamEventError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, string(types.ErrInvalidRequest), msg.Error.Code)

	stored, _ := env.store.Get(sess.ID)
	assert.Equal(t, 1, stored.Transcript().Len())
}

func TestChatHandler_WebSocketUnknownSession(t *testing.T) {
	env := newTestEnv(t, mocks.NewScriptedProvider("Final Answer: x"))
	w := env.do(t, http.MethodGet, "/api/v1/sessions/nope/ws", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
