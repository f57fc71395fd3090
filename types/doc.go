// Copyright (c) SearchFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 SearchFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、llm/tools、agent、
api 等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Message / Role     — 对话消息（system / user / assistant / tool）
  - ToolCall           — LLM 发起的原生工具调用
  - ToolSchema         — 工具定义（name + description + 可选 JSON Schema）
  - Error / ErrorCode  — 结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - Context 传播：WithTraceID / WithSessionID / WithRunID
  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
*/
package types
