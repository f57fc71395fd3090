// =============================================================================
// 📦 SearchFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 .env + YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithDotEnv(".env").
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("SEARCHFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 SearchFlow 的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Agent ReAct 循环配置
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// LLM 大语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Tools 搜索工具配置
	Tools ToolsConfig `yaml:"tools" env:"TOOLS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示与 HTTP 共用
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（需覆盖一次完整的 Agent 运行）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每个客户端 IP 的限流
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 会话空闲过期时间，0 表示不过期
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	// 允许的 CORS 来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// AgentConfig ReAct 循环配置
type AgentConfig struct {
	// 每次运行最多调用 LLM 的次数
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	// 可容忍的无法解析输出次数
	MaxParseRetries int `yaml:"max_parse_retries" env:"MAX_PARSE_RETRIES"`
	// 单次 LLM / 工具调用超时
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
	// 整次运行超时
	RunTimeout time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT"`
	// 未知工具时的兜底工具
	FallbackTool string `yaml:"fallback_tool" env:"FALLBACK_TOOL"`
	// 是否启用流式输出
	Stream bool `yaml:"stream" env:"STREAM"`
	// 是否同时以原生 function calling 形式提供工具
	NativeTools bool `yaml:"native_tools" env:"NATIVE_TOOLS"`
	// 历史消息 token 上限，0 表示不裁剪
	MaxHistoryTokens int `yaml:"max_history_tokens" env:"MAX_HISTORY_TOKENS"`
	// 可重试 LLM 错误的重试次数
	LLMMaxRetries int `yaml:"llm_max_retries" env:"LLM_MAX_RETRIES"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 最大 Token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 新会话的问候语，空表示不问候
	Greeting string `yaml:"greeting" env:"GREETING"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Provider: groq, openai-compatible
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key；会话级 Key 优先
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ToolsConfig 搜索工具配置
type ToolsConfig struct {
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 遇到限流时重试前的固定等待
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff" env:"RATE_LIMIT_BACKOFF"`
	// 网页搜索结果条数上限
	MaxResults int `yaml:"max_results" env:"MAX_RESULTS"`

	Brave      BraveToolConfig      `yaml:"brave" env:"BRAVE"`
	DuckDuckGo DuckDuckGoToolConfig `yaml:"duckduckgo" env:"DUCKDUCKGO"`
	Arxiv      DocumentToolConfig   `yaml:"arxiv" env:"ARXIV"`
	Wikipedia  DocumentToolConfig   `yaml:"wikipedia" env:"WIKIPEDIA"`
}

// BraveToolConfig 通用网页搜索
type BraveToolConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// DuckDuckGoToolConfig 限速网页搜索
type DuckDuckGoToolConfig struct {
	Enabled  bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint string  `yaml:"endpoint" env:"ENDPOINT"`
	RPS      float64 `yaml:"rps" env:"RPS"`
}

// DocumentToolConfig 文档检索（arXiv / Wikipedia）
type DocumentToolConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	// 返回的文档数
	TopK int `yaml:"top_k" env:"TOP_K"`
	// 摘录字符上限
	ContentChars int `yaml:"content_chars" env:"CONTENT_CHARS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	dotEnv     []string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "SEARCHFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithDotEnv 在读取环境变量前加载 .env 文件；已存在的环境变量不会被覆盖。
func (l *Loader) WithDotEnv(paths ...string) *Loader {
	l.dotEnv = append(l.dotEnv, paths...)
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 0. 加载 .env（缺失文件忽略）
	for _, p := range l.dotEnv {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}

	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置。适配器配置有误是唯一允许阻止会话启动的错误。
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, "agent.max_iterations must be positive")
	}
	if c.Agent.MaxParseRetries < 0 {
		errs = append(errs, "agent.max_parse_retries must not be negative")
	}
	if c.Agent.CallTimeout <= 0 || c.Agent.RunTimeout <= 0 {
		errs = append(errs, "agent timeouts must be positive")
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		errs = append(errs, "agent.temperature must be between 0 and 2")
	}
	if strings.TrimSpace(c.Agent.FallbackTool) == "" {
		errs = append(errs, "agent.fallback_tool is required")
	}

	switch c.LLM.Provider {
	case "groq", "openai-compatible":
	default:
		errs = append(errs, fmt.Sprintf("unknown llm.provider %q", c.LLM.Provider))
	}
	if c.LLM.Provider == "openai-compatible" && c.LLM.BaseURL == "" {
		errs = append(errs, "llm.base_url is required for openai-compatible")
	}

	if c.Tools.Timeout <= 0 || c.Tools.RateLimitBackoff <= 0 {
		errs = append(errs, "tools timeouts must be positive")
	}
	if c.Agent.CallTimeout > 0 && c.Tools.Timeout > 0 && c.Tools.RateLimitBackoff > 0 {
		// 一次工具调用最多包含两次尝试与一次退避
		if budget := 2*c.Tools.Timeout + c.Tools.RateLimitBackoff; c.Agent.CallTimeout < budget {
			errs = append(errs, fmt.Sprintf("agent.call_timeout (%s) must be at least 2*tools.timeout + tools.rate_limit_backoff (%s)", c.Agent.CallTimeout, budget))
		}
	}
	if c.Tools.MaxResults <= 0 {
		errs = append(errs, "tools.max_results must be positive")
	}
	if c.Tools.DuckDuckGo.RPS < 0 {
		errs = append(errs, "tools.duckduckgo.rps must not be negative")
	}
	for name, d := range map[string]DocumentToolConfig{"arxiv": c.Tools.Arxiv, "wikipedia": c.Tools.Wikipedia} {
		if d.TopK <= 0 || d.ContentChars <= 0 {
			errs = append(errs, fmt.Sprintf("tools.%s top_k and content_chars must be positive", name))
		}
	}
	if !c.Tools.Brave.Enabled && !c.Tools.DuckDuckGo.Enabled && !c.Tools.Arxiv.Enabled && !c.Tools.Wikipedia.Enabled {
		errs = append(errs, "at least one tool must be enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
