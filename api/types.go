package api

import (
	"time"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/types"
)

// =============================================================================
// 会话类型
// =============================================================================

// CreateSessionRequest 创建会话请求。
// @Description 创建会话请求结构
type CreateSessionRequest struct {
	// 会话级 LLM 凭证，覆盖服务端配置
	APIKey string `json:"api_key,omitempty"`
}

// SetAPIKeyRequest 设置会话凭证请求；空值清除会话凭证。
type SetAPIKeyRequest struct {
	APIKey string `json:"api_key"`
}

// Session 会话视图。凭证本身从不返回。
// @Description 会话结构
type Session struct {
	ID        string    `json:"id" example:"6f1c1b7e-8d4a-4f7e-9a55-0e4f3c2d1b0a"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	// 是否设置了会话级凭证
	HasAPIKey bool `json:"has_api_key"`
	// 是否可以开始对话（有可用凭证）
	Ready bool `json:"ready"`
	// 是否有对话进行中
	Busy     bool      `json:"busy"`
	Messages []Message `json:"messages,omitempty"`
}

// Message 会话消息。
// @Description 对话消息结构
type Message struct {
	Role      string    `json:"role" example:"assistant"`
	Content   string    `json:"content" example:"Hi! I'm a chatbot who can search the web. How can I help you?"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewSession 构建会话视图；withMessages 为 true 时附带完整对话记录。
func NewSession(sess *agent.Session, ready, withMessages bool) Session {
	out := Session{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		LastUsed:  sess.LastUsed(),
		HasAPIKey: sess.HasAPIKey(),
		Ready:     ready,
		Busy:      sess.Busy(),
	}
	if withMessages {
		out.Messages = NewMessages(sess.Transcript().Snapshot())
	}
	return out
}

// NewMessages 转换对话记录。
func NewMessages(msgs []types.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp})
	}
	return out
}

// =============================================================================
// 对话类型
// =============================================================================

// SendMessageRequest 发送用户消息。
// @Description 用户消息请求结构
type SendMessageRequest struct {
	Content string `json:"content" example:"What is machine learning?" binding:"required"`
}

// TurnResponse 一轮对话的结果。
// @Description 对话结果结构
type TurnResponse struct {
	SessionID  string       `json:"session_id"`
	RunID      string       `json:"run_id"`
	Outcome    string       `json:"outcome" example:"answered"`
	Answer     string       `json:"answer"`
	Steps      []agent.Step `json:"steps,omitempty"`
	Iterations int          `json:"iterations"`
	ToolCalls  int          `json:"tool_calls"`
	Warnings   int          `json:"warnings"`
	DurationMS int64        `json:"duration_ms"`
}

// NewTurnResponse 转换运行结果。
func NewTurnResponse(res *agent.RunResult) TurnResponse {
	return TurnResponse{
		SessionID:  res.SessionID,
		RunID:      res.RunID,
		Outcome:    string(res.Outcome),
		Answer:     res.Answer,
		Steps:      res.Steps,
		Iterations: res.Iterations,
		ToolCalls:  res.ToolCalls,
		Warnings:   res.Warnings,
		DurationMS: res.Duration.Milliseconds(),
	}
}

// =============================================================================
// 流式类型
// =============================================================================

// SSE 事件名。Agent 事件沿用 agent.EventKind（thought/action/observation/
// warning/final），另外追加以下两个。
const (
	// StreamEventResult 携带 TurnResponse，总在流末尾发送一次
	StreamEventResult = "result"
	// StreamEventError 携带 ErrorDetail，对话未能开始时发送
	StreamEventError = "error"
)

// WSClientMessage WebSocket 客户端消息。
type WSClientMessage struct {
	// message: 发送用户消息；reset: 重置会话；api_key: 设置会话凭证
	Type    string `json:"type" example:"message"`
	Content string `json:"content,omitempty"`
}

// WebSocket 客户端消息类型
const (
	WSTypeMessage = "message"
	WSTypeReset   = "reset"
	WSTypeAPIKey  = "api_key"
)

// WSServerMessage WebSocket 服务端消息，Type 为 event/result/error/reset。
type WSServerMessage struct {
	Type   string        `json:"type"`
	Event  *agent.Event  `json:"event,omitempty"`
	Result *TurnResponse `json:"result,omitempty"`
	Error  *ErrorDetail  `json:"error,omitempty"`
}

// ErrorDetail 错误详情。
// @Description 错误详情结构
type ErrorDetail struct {
	Code      string `json:"code" example:"CREDENTIAL_MISSING"`
	Message   string `json:"message" example:"Please enter your Groq API key to proceed."`
	Retryable bool   `json:"retryable,omitempty"`
}

// NewErrorDetail 从 error 构建 ErrorDetail。
func NewErrorDetail(err error) *ErrorDetail {
	if e, ok := types.AsError(err); ok {
		return &ErrorDetail{Code: string(e.Code), Message: e.Message, Retryable: e.Retryable}
	}
	return &ErrorDetail{Code: string(types.ErrInternalError), Message: err.Error()}
}

// =============================================================================
// 工具类型
// =============================================================================

// Tool 已注册的搜索工具。
// @Description 工具结构
type Tool struct {
	Name        string `json:"name" example:"wikipedia"`
	Description string `json:"description"`
}
