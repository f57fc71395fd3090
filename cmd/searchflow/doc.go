// Copyright (c) SearchFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 SearchFlow 程序入口。

# 概述

cmd/searchflow 是搜索 Agent 的可执行入口，提供 HTTP API 服务、
终端对话、健康检查和版本查询等子命令。配置按 默认值 → YAML →
.env → SEARCHFLOW_* 环境变量 的顺序加载，GROQ_API_KEY 作为服务端凭据。

# 核心类型

  - Server      — 装配 searchflow.App、路由与中间件，管理 API / Metrics 双端口
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - repl        — 终端对话循环，实时打印 thought / action / observation

# 主要能力

  - 子命令：serve、chat、version、health
  - 中间件链：Recovery、RequestID、OTelTracing、SecurityHeaders、
    RequestLogger、MetricsMiddleware、CORS、RateLimiter（基于 IP）
  - Metrics：MetricsPort > 0 时独立端口暴露 /metrics，否则挂在 API 端口
  - 会话清理：按 SessionTTL 定期移除空闲会话并更新 sessions_active
  - 优雅关闭：signal.NotifyContext → errgroup 内各服务排空 → 刷新 OTel
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
