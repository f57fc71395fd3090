// =============================================================================
// 📦 SearchFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Agent:     DefaultAgentConfig(),
		LLM:       DefaultLLMConfig(),
		Tools:     DefaultToolsConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    6 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
		SessionTTL:      24 * time.Hour,
	}
}

// DefaultAgentConfig 返回默认 Agent 配置
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations:    15,
		MaxParseRetries:  3,
		CallTimeout:      30 * time.Second,
		RunTimeout:       5 * time.Minute,
		FallbackTool:     "brave_search",
		Stream:           true,
		MaxHistoryTokens: 4000,
		LLMMaxRetries:    2,
		Temperature:      0,
		Greeting:         "Hi! I'm a chatbot who can search the web. How can I help you?",
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: "groq",
		Model:    "llama3-8b-8192",
		Timeout:  60 * time.Second,
	}
}

// DefaultToolsConfig 返回默认工具配置
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		Timeout:          10 * time.Second,
		RateLimitBackoff: 5 * time.Second,
		MaxResults:       5,
		Brave: BraveToolConfig{
			Enabled:  true,
			Endpoint: "https://search.brave.com/search",
		},
		DuckDuckGo: DuckDuckGoToolConfig{
			Enabled:  true,
			Endpoint: "https://lite.duckduckgo.com/lite/",
			RPS:      1,
		},
		Arxiv: DocumentToolConfig{
			Enabled:      true,
			Endpoint:     "https://export.arxiv.org/api/query",
			TopK:         1,
			ContentChars: 300,
		},
		Wikipedia: DocumentToolConfig{
			Enabled:      true,
			Endpoint:     "https://en.wikipedia.org/w/api.php",
			TopK:         1,
			ContentChars: 250,
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "searchflow",
		SampleRate:   0.1,
	}
}
