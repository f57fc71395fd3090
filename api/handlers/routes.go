package handlers

import "net/http"

// Routes 汇总各 Handler，Register 将其挂载到 ServeMux。
type Routes struct {
	Sessions *SessionHandler
	Chat     *ChatHandler
	Tools    *ToolsHandler
	Health   *HealthHandler
	// Version 为空时不挂载 /version
	Version http.HandlerFunc
}

// Register 挂载 API 路由（Go 1.22 方法 + 路径通配模式）
func (rt Routes) Register(mux *http.ServeMux) {
	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.HandleHealth)
		mux.HandleFunc("GET /healthz", rt.Health.HandleHealth)
		mux.HandleFunc("GET /ready", rt.Health.HandleReady)
		mux.HandleFunc("GET /readyz", rt.Health.HandleReady)
	}
	if rt.Version != nil {
		mux.HandleFunc("GET /version", rt.Version)
	}
	if rt.Tools != nil {
		mux.HandleFunc("GET /api/v1/tools", rt.Tools.HandleList)
	}
	if rt.Sessions != nil {
		mux.HandleFunc("POST /api/v1/sessions", rt.Sessions.HandleCreate)
		mux.HandleFunc("GET /api/v1/sessions", rt.Sessions.HandleList)
		mux.HandleFunc("GET /api/v1/sessions/{id}", rt.Sessions.HandleGet)
		mux.HandleFunc("DELETE /api/v1/sessions/{id}", rt.Sessions.HandleDelete)
		mux.HandleFunc("POST /api/v1/sessions/{id}/reset", rt.Sessions.HandleReset)
		mux.HandleFunc("PUT /api/v1/sessions/{id}/api-key", rt.Sessions.HandleSetAPIKey)
	}
	if rt.Chat != nil {
		mux.HandleFunc("POST /api/v1/sessions/{id}/messages", rt.Chat.HandleMessage)
		mux.HandleFunc("POST /api/v1/sessions/{id}/messages/stream", rt.Chat.HandleStream)
		mux.HandleFunc("GET /api/v1/sessions/{id}/ws", rt.Chat.HandleWebSocket)
	}
}
