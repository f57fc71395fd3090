package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/api"
	"github.com/BaSui01/searchflow/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 💬 对话接口 Handler
// =============================================================================

// wsEventBuffer 是每轮 WebSocket 对话的事件缓冲
const wsEventBuffer = 32

// ChatHandler 对话接口处理器：同步 JSON、SSE 与 WebSocket 三种传输。
type ChatHandler struct {
	agent  *agent.Agent
	store  *agent.SessionStore
	logger *zap.Logger
	// WebSocket 允许的 Origin 模式，空表示仅同源
	originPatterns []string
}

// NewChatHandler 创建对话处理器
func NewChatHandler(a *agent.Agent, store *agent.SessionStore, originPatterns []string, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		agent:          a,
		store:          store,
		originPatterns: originPatterns,
		logger:         logger.With(zap.String("component", "chat_handler")),
	}
}

// HandleMessage 执行一轮对话并返回结果
// @Summary 发送消息
// @Description 追加用户消息，运行 Agent，追加一条助手消息
// @Tags 对话
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param request body api.SendMessageRequest true "用户消息"
// @Success 200 {object} api.TurnResponse
// @Failure 401 {object} Response "缺少 LLM 凭证"
// @Failure 409 {object} Response "对话进行中"
// @Router /api/v1/sessions/{id}/messages [post]
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	sess, content, ok := h.prepare(w, r)
	if !ok {
		return
	}

	res, err := h.agent.Chat(r.Context(), sess, content, agent.Discard)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.NewTurnResponse(res))
}

// HandleStream 以 SSE 推送一轮对话的事件
// @Summary 流式发送消息
// @Description 每个 Agent 事件作为一个 SSE 事件（event: thought/action/observation/warning/final），以 event: result 结束
// @Tags 对话
// @Accept json
// @Produce text/event-stream
// @Param id path string true "会话 ID"
// @Param request body api.SendMessageRequest true "用户消息"
// @Success 200 {string} string "SSE 流"
// @Router /api/v1/sessions/{id}/messages/stream [post]
func (h *ChatHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteErrorMessage(w, r, http.StatusInternalServerError, types.ErrInternalError, "streaming not supported", h.logger)
		return
	}
	sess, content, ok := h.prepare(w, r)
	if !ok {
		return
	}

	sse := &sseWriter{w: w, flusher: flusher}
	res, err := h.agent.Chat(r.Context(), sess, content, agent.SinkFunc(func(_ context.Context, ev agent.Event) {
		if werr := sse.send(string(ev.Kind), ev); werr != nil {
			h.logger.Debug("sse write failed", zap.Error(werr))
		}
	}))
	if err != nil {
		// 对话未开始，尚未写出任何事件
		if !sse.started() {
			WriteError(w, r, err, h.logger)
			return
		}
		_ = sse.send(api.StreamEventError, api.NewErrorDetail(err))
		return
	}

	_ = sse.send(api.StreamEventResult, api.NewTurnResponse(res))
	_ = sse.done()
}

// HandleWebSocket 在 WebSocket 上进行多轮对话
// @Summary WebSocket 对话
// @Description 客户端发送 {"type":"message","content":...}，服务端推送 event 消息并以 result 结束每一轮
// @Tags 对话
// @Param id path string true "会话 ID"
// @Router /api/v1/sessions/{id}/ws [get]
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	ws := &wsWriter{conn: conn}
	logger := h.logger.With(zap.String("session_id", sess.ID))
	logger.Info("websocket connected")

	g, ctx := errgroup.WithContext(r.Context())
	incoming := make(chan api.WSClientMessage)

	// 读循环独立运行，客户端断开时取消进行中的对话
	g.Go(func() error {
		defer close(incoming)
		for {
			var msg api.WSClientMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				return err
			}
			select {
			case incoming <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		for msg := range incoming {
			if err := h.handleWSMessage(ctx, sess, ws, msg); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		logger.Info("websocket closed")
		return
	}
	logger.Debug("websocket ended", zap.Error(err))
}

func (h *ChatHandler) handleWSMessage(ctx context.Context, sess *agent.Session, ws *wsWriter, msg api.WSClientMessage) error {
	switch msg.Type {
	case api.WSTypeMessage, "":
		res, err := h.chatOverWS(ctx, sess, ws, msg.Content)
		if err != nil {
			return ws.write(ctx, api.WSServerMessage{Type: api.StreamEventError, Error: api.NewErrorDetail(err)})
		}
		out := api.NewTurnResponse(res)
		return ws.write(ctx, api.WSServerMessage{Type: api.StreamEventResult, Result: &out})

	case api.WSTypeReset:
		if err := sess.Reset(); err != nil {
			return ws.write(ctx, api.WSServerMessage{Type: api.StreamEventError, Error: api.NewErrorDetail(err)})
		}
		return ws.write(ctx, api.WSServerMessage{Type: api.WSTypeReset})

	case api.WSTypeAPIKey:
		sess.SetAPIKey(msg.Content)
		return ws.write(ctx, api.WSServerMessage{Type: api.WSTypeAPIKey})

	default:
		err := types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown message type %q", msg.Type))
		return ws.write(ctx, api.WSServerMessage{Type: api.StreamEventError, Error: api.NewErrorDetail(err)})
	}
}

// chatOverWS 运行一轮对话，事件经 ChannelSink 缓冲后由单独的 goroutine 写出，
// 慢客户端不会直接阻塞 Agent 循环。返回前所有事件都已写出。
func (h *ChatHandler) chatOverWS(ctx context.Context, sess *agent.Session, ws *wsWriter, input string) (*agent.RunResult, error) {
	sink := agent.NewChannelSink(wsEventBuffer)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		failed := false
		for ev := range sink.Events() {
			if failed {
				continue
			}
			if err := ws.write(ctx, api.WSServerMessage{Type: "event", Event: &ev}); err != nil {
				// 写失败后继续排空，避免 Emit 阻塞
				failed = true
			}
		}
	}()

	res, err := h.agent.Chat(ctx, sess, input, sink)
	sink.Close()
	<-drained
	return res, err
}

// prepare 校验请求并解析会话与用户消息；失败时已写出错误响应。
func (h *ChatHandler) prepare(w http.ResponseWriter, r *http.Request) (*agent.Session, string, bool) {
	sess, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return nil, "", false
	}
	if !ValidateContentType(w, r, h.logger) {
		return nil, "", false
	}
	var req api.SendMessageRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return nil, "", false
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "content is required", h.logger)
		return nil, "", false
	}
	return sess, content, true
}

// =============================================================================
// 🔧 流写入器
// =============================================================================

// sseWriter 串行写出 SSE 事件，首个事件前写响应头。
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	opened  bool
}

func (s *sseWriter) open() {
	if s.opened {
		return
	}
	s.opened = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // 禁用 nginx 缓冲
	s.w.WriteHeader(http.StatusOK)
}

func (s *sseWriter) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// send 写出一个事件；data 使用 json.Marshal，保证单行且已转义
func (s *sseWriter) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) done() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open()
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// wsWriter 串行化 WebSocket 写操作
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) write(ctx context.Context, msg api.WSServerMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return wsjson.Write(ctx, w.conn, msg)
}
