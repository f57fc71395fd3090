// Package groq 提供 Groq 托管模型的 Provider 实现，基于 openaicompat 基座。
package groq
