// Copyright (c) SearchFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 SearchFlow HTTP API 的请求处理器实现。

# 核心类型

  - SessionHandler — 会话创建、查询、删除、重置与会话级凭证
  - ChatHandler    — 一轮对话：同步 JSON、SSE 流与 WebSocket
  - ToolsHandler   — 已注册搜索工具列表
  - HealthHandler  — /health、/ready、/version
  - Routes         — 将上述 Handler 挂载到 http.ServeMux
  - Response       — 统一 JSON 响应结构（success + data + error + timestamp）
  - ResponseWriter — 捕获状态码，透传 Flush/Hijack

# 主要能力

  - ErrorCode → HTTP 状态码映射：缺少凭证 401，会话不存在 404，
    会话忙 409，其余未分类错误 500。
  - 流式对话：每个 Agent 事件按产生顺序推送，末尾固定一条 result。
*/
package handlers
