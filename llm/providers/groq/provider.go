package groq

import (
	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/providers"
	"github.com/BaSui01/searchflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL Groq OpenAI 兼容网关地址
	DefaultBaseURL = "https://api.groq.com/openai"
	// DefaultModel 未配置模型时使用的模型
	DefaultModel = "llama3-8b-8192"
	// maxStopSequences Groq 对 stop 数组长度的上限
	maxStopSequences = 4
)

// GroqProvider 实现 Groq LLM 提供者.
// Groq 使用 OpenAI 兼容的 API 格式，调用必须携带 API Key.
type GroqProvider struct {
	*openaicompat.Provider
}

// NewGroqProvider 创建新的 Groq 提供者实例.
func NewGroqProvider(cfg providers.GroqConfig, logger *zap.Logger) *GroqProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	return &GroqProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:  "groq",
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			DefaultModel:  cfg.Model,
			FallbackModel: DefaultModel,
			Timeout:       cfg.Timeout,
			RequireAPIKey: true,
			RequestHook:   groqRequestHook,
		}, logger),
	}
}

// groqRequestHook 截断超出上限的 stop 序列.
func groqRequestHook(_ *llm.ChatRequest, body *providers.OpenAICompatRequest) {
	if len(body.Stop) > maxStopSequences {
		body.Stop = body.Stop[:maxStopSequences]
	}
}
