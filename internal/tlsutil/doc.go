// Package tlsutil 提供集中式 TLS 客户端配置，
// 供 LLM Provider 与各搜索工具适配器共享（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
