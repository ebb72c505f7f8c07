package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentgate/api/handlers"
	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/config"
	"github.com/BaSui01/agentgate/events"
	"github.com/BaSui01/agentgate/feedback"
	"github.com/BaSui01/agentgate/internal/cache"
	"github.com/BaSui01/agentgate/internal/database"
	"github.com/BaSui01/agentgate/internal/metrics"
	"github.com/BaSui01/agentgate/internal/migration"
	"github.com/BaSui01/agentgate/internal/server"
	"github.com/BaSui01/agentgate/internal/telemetry"
	"github.com/BaSui01/agentgate/session"
)

// publicPaths 免认证路径
var publicPaths = []string{"/health", "/ready", "/version"}

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server 组装会话、存储与 HTTP 应答面
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	bus     *events.Dispatcher
	session *session.Session

	collector *metrics.Collector
	otel      *telemetry.Providers
	pool      *database.PoolManager
	cache     *cache.Manager

	health *handlers.HealthHandler
	events *handlers.EventsHandler

	stopRateLimiter context.CancelFunc
	subscriptions   []string
}

// NewServer 按配置连接存储并创建会话。collector 为 nil 时不采集 HTTP 与审批指标。
func NewServer(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		bus:       events.NewDispatcher(logger),
		health:    handlers.NewHealthHandler(logger),
	}

	var opts []session.Option
	opts = append(opts, session.WithBus(s.bus))

	if cfg.Approval.RememberBackend == "redis" {
		store, err := s.initRedis()
		if err != nil {
			s.Close()
			return nil, err
		}
		opts = append(opts, session.WithDecisionStore(store))
	}

	var feedbackStore *feedback.GormStore
	if cfg.Feedback.Persist {
		store, err := s.initDatabase(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		feedbackStore = store
		opts = append(opts, session.WithFeedbackStore(store))
	}

	s.session = session.New(session.ConfigFrom(cfg), logger, opts...)
	if feedbackStore != nil {
		if err := s.session.Feedback.Load(ctx); err != nil {
			s.logger.Warn("failed to load stored feedback", zap.Error(err))
		}
	}

	if collector != nil {
		s.subscriptions = append(s.subscriptions, collector.Observe(s.bus))
	}

	providers, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.otel = providers
	if providers.Enabled() {
		subID, err := telemetry.ObserveApprovals(s.bus, providers.Meter("agentgate"))
		if err != nil {
			s.logger.Warn("failed to register approval telemetry", zap.Error(err))
		} else {
			s.subscriptions = append(s.subscriptions, subID)
		}
	}

	s.events = handlers.NewEventsHandler(s.bus, originHosts(cfg.Server.CORSAllowedOrigins), logger)

	s.logger.Info("session ready",
		zap.String("session_id", s.session.ID),
		zap.String("remember_backend", cfg.Approval.RememberBackend),
		zap.Bool("feedback_persist", cfg.Feedback.Persist),
	)
	return s, nil
}

// originHosts 把 CORS 来源（https://host:port）转换为 WebSocket 的主机匹配模式
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}

// Session 返回服务持有的会话
func (s *Server) Session() *session.Session { return s.session }

// initRedis 连接 Redis 并注册就绪检查
func (s *Server) initRedis() (approval.DecisionStore, error) {
	manager, err := cache.NewManager(cache.ConfigFrom(s.cfg.Redis), s.logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	s.cache = manager
	s.health.RegisterCheck(handlers.NewPingCheck("redis", manager.Ping))
	return approval.NewRedisDecisionStore(manager.Client(), s.cfg.Approval.RememberKeyPrefix), nil
}

// initDatabase 打开数据库、应用迁移并注册就绪检查
func (s *Server) initDatabase(ctx context.Context) (*feedback.GormStore, error) {
	db, err := database.Open(s.cfg.Database, s.logger)
	if err != nil {
		return nil, err
	}

	var recorder database.StatsRecorder
	if s.collector != nil {
		recorder = s.collector
	}
	pool, err := database.NewPoolManager(s.cfg.Database.Driver, db, database.DefaultPoolConfig(), recorder, s.logger)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	s.health.RegisterCheck(handlers.NewPingCheck("database", pool.Ping))

	dbType, err := migration.ParseDatabaseType(s.cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	// 迁移器共享连接池，不调用 Close
	migrator, err := migration.NewMigrator(&migration.Config{DatabaseType: dbType, DB: sqlDB}, s.logger)
	if err != nil {
		return nil, err
	}
	if err := migrator.Up(ctx); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return feedback.NewGormStore(db), nil
}

// =============================================================================
// 🌐 路由
// =============================================================================

// Routes 返回带完整中间件链的 API 处理器
func (s *Server) Routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	sess := s.session

	mux.HandleFunc("GET /health", s.health.HandleHealth)
	mux.HandleFunc("GET /ready", s.health.HandleReady)
	mux.HandleFunc("GET /version", s.health.HandleVersion(Version, BuildTime, GitCommit))

	approvals := handlers.NewApprovalHandler(sess.Approvals, s.logger)
	mux.HandleFunc("GET /api/v1/approvals", approvals.HandlePending)
	mux.HandleFunc("GET /api/v1/approvals/history", approvals.HandleHistory)
	mux.HandleFunc("GET /api/v1/approvals/decisions", approvals.HandleDecisions)
	mux.HandleFunc("DELETE /api/v1/approvals/decisions", approvals.HandleClearDecisions)
	mux.HandleFunc("POST /api/v1/approvals/cancel", approvals.HandleCancel)
	mux.HandleFunc("GET /api/v1/approvals/{id}", approvals.HandleGet)
	mux.HandleFunc("POST /api/v1/approvals/{id}/respond", approvals.HandleRespond)

	control := handlers.NewControlHandler(sess.Breakpoints, sess.Approvals, sess.History, s.logger)
	mux.HandleFunc("POST /api/v1/control/pause", control.HandlePause)
	mux.HandleFunc("POST /api/v1/control/resume", control.HandleResume)
	mux.HandleFunc("GET /api/v1/control/status", control.HandleStatus)

	breakpoints := handlers.NewBreakpointHandler(sess.Breakpoints, s.logger)
	mux.HandleFunc("GET /api/v1/breakpoints", breakpoints.HandleList)
	mux.HandleFunc("POST /api/v1/breakpoints", breakpoints.HandleAdd)
	mux.HandleFunc("DELETE /api/v1/breakpoints/{id}", breakpoints.HandleDelete)
	mux.HandleFunc("POST /api/v1/breakpoints/{id}/enable", breakpoints.HandleEnable)
	mux.HandleFunc("POST /api/v1/breakpoints/{id}/trigger", breakpoints.HandleTrigger)

	history := handlers.NewHistoryHandler(sess.History, sess.Guard(), s.logger)
	mux.HandleFunc("GET /api/v1/history", history.HandleList)
	mux.HandleFunc("GET /api/v1/history/export", history.HandleExport)
	mux.HandleFunc("GET /api/v1/history/{id}", history.HandleGet)
	mux.HandleFunc("POST /api/v1/history/rollback", history.HandleRollback)

	fb := handlers.NewFeedbackHandler(sess.Feedback, s.logger)
	mux.HandleFunc("POST /api/v1/feedback", fb.HandleCollect)
	mux.HandleFunc("GET /api/v1/feedback", fb.HandleList)
	mux.HandleFunc("GET /api/v1/feedback/export", fb.HandleExport)

	workflows := handlers.NewWorkflowHandler(sess.Workflows, s.logger)
	mux.HandleFunc("GET /api/v1/workflows", workflows.HandleList)
	mux.HandleFunc("POST /api/v1/workflows", workflows.HandleDefine)
	mux.HandleFunc("DELETE /api/v1/workflows/{name}", workflows.HandleRemove)

	mux.HandleFunc("GET /api/v1/events", s.events.HandleStream)

	// ========================================
	// 中间件链
	// ========================================
	rlCtx, cancel := context.WithCancel(ctx)
	s.stopRateLimiter = cancel

	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
	}
	if s.collector != nil {
		chain = append(chain, MetricsMiddleware(s.collector))
	}
	chain = append(chain,
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	)
	if len(s.cfg.Server.APIKeys) > 0 {
		chain = append(chain, APIKeyAuth(s.cfg.Server.APIKeys, publicPaths, s.logger))
	}
	if s.cfg.Auth.JWTSecret != "" {
		chain = append(chain, JWTAuth(s.cfg.Auth, publicPaths, s.logger))
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		chain = append(chain, RateLimiter(rlCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger))
	}
	return Chain(mux, chain...)
}

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 启动 API 与 metrics 服务器，阻塞到 ctx 结束或任一服务器异常退出
func (s *Server) Run(ctx context.Context) error {
	apiServer := server.NewManager("api", s.Routes(ctx),
		server.ConfigFrom(s.cfg.Server, s.cfg.Server.HTTPPort), s.logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.Handler())
	metricsCfg := server.ConfigFrom(s.cfg.Server, s.cfg.Server.MetricsPort)
	metricsCfg.TLSCertFile, metricsCfg.TLSKeyFile = "", ""
	metricsServer := server.NewManager("metrics", metricsMux, metricsCfg, s.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return apiServer.Run(gctx) })
	g.Go(func() error { return metricsServer.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		// WebSocket 连接已被接管，Shutdown 不会等待它们
		s.events.Close()
		return nil
	})

	s.logger.Info("servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return g.Wait()
}

// Close 关闭会话与全部后端连接
func (s *Server) Close() error {
	s.logger.Info("starting graceful shutdown")

	if s.stopRateLimiter != nil {
		s.stopRateLimiter()
	}
	if s.events != nil {
		s.events.Close()
	}
	if s.session != nil {
		s.session.Close()
	}
	for _, id := range s.subscriptions {
		s.bus.Unsubscribe(id)
	}
	s.bus.Stop()

	var errs []error
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("shutdown completed with errors", zap.Error(err))
	} else {
		s.logger.Info("graceful shutdown completed")
	}
	return err
}
