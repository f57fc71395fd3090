package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/searchflow"
	"github.com/BaSui01/searchflow/api/handlers"
	"github.com/BaSui01/searchflow/config"
	"github.com/BaSui01/searchflow/internal/metrics"
	"github.com/BaSui01/searchflow/internal/server"
	"github.com/BaSui01/searchflow/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// unlimitedPaths 不参与限流
var unlimitedPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server 是 SearchFlow 的主服务器：API 服务 + 可选的独立 Metrics 服务
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	app       *searchflow.App
	collector *metrics.Collector
	registry  *prometheus.Registry
	otel      *telemetry.Providers

	handler        http.Handler
	metricsHandler http.Handler
	// stopLimiter 停止限流器的后台清理
	stopLimiter context.CancelFunc
}

// NewServer 装配应用与路由，不监听端口。otel 可为 nil。
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollectorWithRegistry("searchflow", reg, logger)

	app, err := searchflow.New(cfg,
		searchflow.WithLogger(logger),
		searchflow.WithMetrics(collector),
		searchflow.WithTracer(otel.Tracer("searchflow/agent")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent: %w", err)
	}

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		app:            app,
		collector:      collector,
		registry:       reg,
		otel:           otel,
		metricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}
	s.handler = s.buildHandler()
	return s, nil
}

// buildHandler 注册路由并构建中间件链
func (s *Server) buildHandler() http.Handler {
	health := handlers.NewHealthHandler(s.logger)
	health.RegisterCheck(handlers.ToolsCheck(s.app.Registry))
	health.RegisterCheck(handlers.ProviderCheck(s.app.Provider))

	sessions := handlers.NewSessionHandler(s.app.Agent, s.app.Sessions, s.logger)
	sessions.OnChange(s.collector.SetActiveSessions)

	mux := http.NewServeMux()
	handlers.Routes{
		Sessions: sessions,
		Chat:     handlers.NewChatHandler(s.app.Agent, s.app.Sessions, s.cfg.Server.CORSAllowedOrigins, s.logger),
		Tools:    handlers.NewToolsHandler(s.app.Registry),
		Health:   health,
		Version:  health.HandleVersion(Version, BuildTime, GitCommit),
	}.Register(mux)

	// MetricsPort 为 0 时在 API 端口暴露 /metrics
	if s.cfg.Server.MetricsPort == 0 {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	limiterCtx, cancel := context.WithCancel(context.Background())
	s.stopLimiter = cancel

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(limiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, unlimitedPaths, s.logger),
	)
}

// Handler returns the fully wrapped API handler.
func (s *Server) Handler() http.Handler { return s.handler }

// App returns the wired application.
func (s *Server) App() *searchflow.App { return s.app }

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 启动 API 服务、Metrics 服务和会话清理，阻塞到 ctx 结束或任一组件失败。
func (s *Server) Run(ctx context.Context) error {
	defer s.stopLimiter()

	g, ctx := errgroup.WithContext(ctx)

	api := server.NewManager(s.handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger.With(zap.String("server", "api")))
	g.Go(func() error { return api.Run(ctx) })

	if s.cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", s.metricsHandler)
		ms := server.NewManager(mux, server.Config{
			Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
			ReadTimeout:     s.cfg.Server.ReadTimeout,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
		}, s.logger.With(zap.String("server", "metrics")))
		g.Go(func() error { return ms.Run(ctx) })
	}

	if ttl := s.cfg.Server.SessionTTL; ttl > 0 {
		g.Go(func() error {
			s.pruneLoop(ctx, ttl, pruneInterval(ttl))
			return nil
		})
	}

	s.logger.Info("SearchFlow started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Strings("tools", s.app.Registry.Names()),
	)

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if shutdownErr := s.otel.Shutdown(shutdownCtx); shutdownErr != nil {
		s.logger.Warn("telemetry shutdown failed", zap.Error(shutdownErr))
	}
	s.logger.Info("Graceful shutdown completed")
	return err
}

// pruneLoop 定期移除空闲超过 ttl 的会话
func (s *Server) pruneLoop(ctx context.Context, ttl, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneSessions(ttl)
		}
	}
}

func (s *Server) pruneSessions(ttl time.Duration) int {
	n := s.app.Sessions.Prune(ttl)
	s.collector.SetActiveSessions(s.app.Sessions.Len())
	if n > 0 {
		s.logger.Info("expired sessions pruned", zap.Int("count", n), zap.Duration("ttl", ttl))
	}
	return n
}

func pruneInterval(ttl time.Duration) time.Duration {
	every := ttl / 10
	if every < time.Second {
		every = time.Second
	}
	if every > 10*time.Minute {
		every = 10 * time.Minute
	}
	return every
}
