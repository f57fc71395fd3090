package handlers

import (
	"net/http"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/api"
	"go.uber.org/zap"
)

// =============================================================================
// 🗂️ 会话接口 Handler
// =============================================================================

// SessionHandler 会话管理处理器
type SessionHandler struct {
	agent  *agent.Agent
	store  *agent.SessionStore
	logger *zap.Logger
	// onChange 在会话数量变化后调用（用于会话数指标）
	onChange func(n int)
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(a *agent.Agent, store *agent.SessionStore, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		agent:  a,
		store:  store,
		logger: logger.With(zap.String("component", "session_handler")),
	}
}

// OnChange 注册会话数变化回调
func (h *SessionHandler) OnChange(fn func(n int)) { h.onChange = fn }

func (h *SessionHandler) changed() {
	if h.onChange != nil {
		h.onChange(h.store.Len())
	}
}

// HandleCreate 创建会话
// @Summary 创建会话
// @Tags 会话
// @Accept json
// @Produce json
// @Param request body api.CreateSessionRequest false "会话凭证"
// @Success 201 {object} api.Session
// @Router /api/v1/sessions [post]
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.CreateSessionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	sess := h.store.Create(req.APIKey)
	h.changed()
	h.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.Bool("has_api_key", sess.HasAPIKey()),
	)
	WriteStatus(w, r, http.StatusCreated, h.view(r, sess, true))
}

// HandleList 列出会话（不含对话记录）
// @Summary 会话列表
// @Tags 会话
// @Produce json
// @Success 200 {array} api.Session
// @Router /api/v1/sessions [get]
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.List()
	out := make([]api.Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, h.view(r, sess, false))
	}
	WriteSuccess(w, r, out)
}

// HandleGet 返回会话及其对话记录
// @Summary 查询会话
// @Tags 会话
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} api.Session
// @Failure 404 {object} Response
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, r, h.view(r, sess, true))
}

// HandleDelete 删除会话
// @Summary 删除会话
// @Tags 会话
// @Param id path string true "会话 ID"
// @Success 204
// @Failure 404 {object} Response
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(id); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	h.changed()
	h.logger.Info("session deleted", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleReset 将对话记录重置为问候语
// @Summary 重置会话
// @Tags 会话
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} api.Session
// @Failure 409 {object} Response "对话进行中"
// @Router /api/v1/sessions/{id}/reset [post]
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, h.view(r, sess, true))
}

// HandleSetAPIKey 设置或清除会话凭证
// @Summary 设置会话凭证
// @Tags 会话
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param request body api.SetAPIKeyRequest true "凭证"
// @Success 200 {object} api.Session
// @Router /api/v1/sessions/{id}/api-key [put]
func (h *SessionHandler) HandleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.SetAPIKeyRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	sess.SetAPIKey(req.APIKey)
	WriteSuccess(w, r, h.view(r, sess, false))
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*agent.Session, bool) {
	sess, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) view(r *http.Request, sess *agent.Session, withMessages bool) api.Session {
	return api.NewSession(sess, h.agent.Ready(r.Context(), sess), withMessages)
}
