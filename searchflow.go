// Package searchflow wires configuration into a ready-to-use search agent:
// LLM provider, tool registry with the four search adapters, and the agent
// with its session store.
//
// Usage:
//
//	cfg, _ := config.NewLoader().WithConfigPath("config.yaml").Load()
//	app, err := searchflow.New(cfg, searchflow.WithLogger(logger))
//	sess := app.Sessions.Create("")
//	res, err := app.Agent.Chat(ctx, sess, "What is machine learning?", agent.Discard)
package searchflow

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BaSui01/searchflow/agent"
	"github.com/BaSui01/searchflow/config"
	"github.com/BaSui01/searchflow/llm"
	"github.com/BaSui01/searchflow/llm/providers"
	"github.com/BaSui01/searchflow/llm/providers/groq"
	"github.com/BaSui01/searchflow/llm/providers/openaicompat"
	"github.com/BaSui01/searchflow/llm/tokenizer"
	"github.com/BaSui01/searchflow/llm/tools"
	"github.com/BaSui01/searchflow/types"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Metrics is what the app reports to: loop measurements and tool outcomes.
// internal/metrics.Collector satisfies it.
type Metrics interface {
	agent.MetricsRecorder
	tools.Observer
}

// App is a wired search agent.
type App struct {
	Config   *config.Config
	Provider llm.Provider
	Registry *tools.Registry
	Agent    *agent.Agent
	Sessions *agent.SessionStore
}

// Option configures New.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	provider   llm.Provider
	metrics    Metrics
	tracer     trace.Tracer
	httpClient *http.Client
	extraTools []tools.Tool
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithProvider replaces the configured LLM provider.
func WithProvider(p llm.Provider) Option { return func(o *options) { o.provider = p } }

// WithMetrics reports loop and tool measurements.
func WithMetrics(m Metrics) Option { return func(o *options) { o.metrics = m } }

// WithTracer sets the tracer for run, LLM and tool spans.
func WithTracer(t trace.Tracer) Option { return func(o *options) { o.tracer = t } }

// WithHTTPClient sets the client used by the search adapters.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithTools registers additional tools after the configured ones.
func WithTools(ts ...tools.Tool) Option {
	return func(o *options) { o.extraTools = append(o.extraTools, ts...) }
}

// New validates cfg and wires the application. A malformed tool setup is
// reported here, before any session exists.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "invalid config").WithCause(err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	provider := o.provider
	if provider == nil {
		p, err := NewProvider(cfg.LLM, o.logger)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	var observer tools.Observer
	if o.metrics != nil {
		observer = o.metrics
	}
	registry, err := NewRegistry(cfg.Tools, observer, o.httpClient, o.logger)
	if err != nil {
		return nil, err
	}
	for _, t := range o.extraTools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}

	tokenizer.RegisterKnownTokenizers()
	loopOpts := []agent.LoopOption{
		agent.WithLogger(o.logger),
		agent.WithTokenizer(tokenizer.GetTokenizerOrEstimator(cfg.LLM.Model)),
	}
	if o.metrics != nil {
		loopOpts = append(loopOpts, agent.WithMetrics(o.metrics))
	}
	if o.tracer != nil {
		loopOpts = append(loopOpts, agent.WithTracer(o.tracer))
	}

	acfg := AgentConfig(cfg.Agent, cfg.LLM)
	a, err := agent.New(provider, registry, acfg, loopOpts...)
	if err != nil {
		return nil, err
	}

	o.logger.Info("search agent ready",
		zap.String("provider", provider.Name()),
		zap.String("model", acfg.Model),
		zap.Strings("tools", registry.Names()),
		zap.Bool("server_credential", cfg.LLM.APIKey != ""),
	)

	return &App{
		Config:   cfg,
		Provider: provider,
		Registry: registry,
		Agent:    a,
		Sessions: agent.NewSessionStore(acfg.Greeting),
	}, nil
}

// NewProvider builds the configured LLM backend.
func NewProvider(cfg config.LLMConfig, logger *zap.Logger) (llm.Provider, error) {
	base := providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "groq":
		return groq.NewGroqProvider(providers.GroqConfig{BaseProviderConfig: base}, logger), nil
	case "openai-compatible", "openai_compatible", "openaicompat":
		return openaicompat.New(openaicompat.Config{
			ProviderName:  "openai-compatible",
			APIKey:        base.APIKey,
			BaseURL:       base.BaseURL,
			DefaultModel:  base.Model,
			Timeout:       base.Timeout,
			RequireAPIKey: false,
		}, logger), nil
	default:
		return nil, types.NewError(types.ErrInvalidConfig, fmt.Sprintf("unsupported llm provider %q", cfg.Provider))
	}
}

// NewRegistry registers the enabled search adapters in a fixed order:
// brave_search, duckduckgo_search, arxiv, wikipedia.
func NewRegistry(cfg config.ToolsConfig, observer tools.Observer, client *http.Client, logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger)

	var adapters []tools.Tool
	if cfg.Brave.Enabled {
		adapters = append(adapters, tools.NewBraveSearch(tools.BraveConfig{
			Endpoint:         cfg.Brave.Endpoint,
			MaxResults:       cfg.MaxResults,
			Timeout:          cfg.Timeout,
			RateLimitBackoff: cfg.RateLimitBackoff,
			Client:           client,
			Observer:         observer,
		}, logger))
	}
	if cfg.DuckDuckGo.Enabled {
		adapters = append(adapters, tools.NewDuckDuckGoSearch(tools.DuckDuckGoConfig{
			Endpoint:         cfg.DuckDuckGo.Endpoint,
			MaxResults:       cfg.MaxResults,
			RPS:              cfg.DuckDuckGo.RPS,
			Timeout:          cfg.Timeout,
			RateLimitBackoff: cfg.RateLimitBackoff,
			Client:           client,
			Observer:         observer,
		}, logger))
	}
	if cfg.Arxiv.Enabled {
		adapters = append(adapters, tools.NewArxivSearch(tools.ArxivConfig{
			Endpoint:         cfg.Arxiv.Endpoint,
			TopK:             cfg.Arxiv.TopK,
			ContentChars:     cfg.Arxiv.ContentChars,
			Timeout:          cfg.Timeout,
			RateLimitBackoff: cfg.RateLimitBackoff,
			Client:           client,
			Observer:         observer,
		}, logger))
	}
	if cfg.Wikipedia.Enabled {
		adapters = append(adapters, tools.NewWikipediaSearch(tools.WikipediaConfig{
			Endpoint:         cfg.Wikipedia.Endpoint,
			TopK:             cfg.Wikipedia.TopK,
			ContentChars:     cfg.Wikipedia.ContentChars,
			Timeout:          cfg.Timeout,
			RateLimitBackoff: cfg.RateLimitBackoff,
			Client:           client,
			Observer:         observer,
		}, logger))
	}

	for _, t := range adapters {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// AgentConfig maps the config sections onto agent.Config.
func AgentConfig(cfg config.AgentConfig, llmCfg config.LLMConfig) agent.Config {
	return agent.Config{
		MaxIterations:    cfg.MaxIterations,
		MaxParseRetries:  cfg.MaxParseRetries,
		CallTimeout:      cfg.CallTimeout,
		RunTimeout:       cfg.RunTimeout,
		FallbackTool:     cfg.FallbackTool,
		Stream:           cfg.Stream,
		NativeTools:      cfg.NativeTools,
		MaxHistoryTokens: cfg.MaxHistoryTokens,
		LLMMaxRetries:    cfg.LLMMaxRetries,
		Model:            llmCfg.Model,
		Temperature:      float32(cfg.Temperature),
		MaxTokens:        cfg.MaxTokens,
		Greeting:         cfg.Greeting,
	}
}
