// Package agent 实现 ReAct 搜索代理：会话与 Transcript、输出解析、
// 提示词渲染、AgentLoop 状态机以及面向显示层的事件流。
//
// 一次用户回合（Agent.Chat）：追加用户消息 → Loop.Run → 追加且仅追加
// 一条助手消息。所有运行期失败都被归类到 RunResult 中，会话始终可继续使用。
package agent
