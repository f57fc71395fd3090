package handlers

import (
	"net/http"

	"github.com/BaSui01/searchflow/api"
	"github.com/BaSui01/searchflow/llm/tools"
)

// ToolsHandler 工具列表处理器
type ToolsHandler struct {
	registry *tools.Registry
}

// NewToolsHandler 创建工具列表处理器
func NewToolsHandler(registry *tools.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

// HandleList 按注册顺序返回工具
// @Summary 工具列表
// @Tags 工具
// @Produce json
// @Success 200 {array} api.Tool
// @Router /api/v1/tools [get]
func (h *ToolsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	schemas := h.registry.DescribeAll()
	out := make([]api.Tool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, api.Tool{Name: s.Name, Description: s.Description})
	}
	WriteSuccess(w, r, out)
}
