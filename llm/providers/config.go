package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GroqConfig Groq Provider 配置
type GroqConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// OpenAICompatConfig 任意 OpenAI 兼容端点的配置（自建网关、本地推理服务等）
type OpenAICompatConfig struct {
	BaseProviderConfig `yaml:",inline"`
	// RequireAPIKey 为 false 时允许无凭据调用（例如本地 Ollama）。
	RequireAPIKey bool `json:"require_api_key" yaml:"require_api_key"`
}
