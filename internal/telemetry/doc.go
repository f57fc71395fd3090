// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 SearchFlow 的 Agent 运行、LLM 调用与工具调用提供 trace 导出。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
