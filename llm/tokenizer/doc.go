// Package tokenizer 提供 Token 计数，
// 用于裁剪提示词中的对话历史窗口（max_history_tokens）。
// 已知 OpenAI 模型使用 tiktoken 精确计数，其余模型（如 llama3）回退到 CJK 感知估算器。
package tokenizer
