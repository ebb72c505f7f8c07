package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/breakpoint"
	"github.com/BaSui01/agentgate/config"
	"github.com/BaSui01/agentgate/events"
	"github.com/BaSui01/agentgate/feedback"
	"github.com/BaSui01/agentgate/timetravel"
	"github.com/BaSui01/agentgate/workflow"
)

// Config 会话配置
type Config struct {
	Approval    approval.EngineConfig
	Breakpoint  breakpoint.Config
	HistorySize int
	// PauseTimeout Guard 在暂停闸门上的最长等待，0 表示一直等到恢复
	PauseTimeout time.Duration
}

// DefaultConfig 返回默认会话配置
func DefaultConfig() Config {
	return Config{
		Approval:    approval.DefaultEngineConfig(),
		Breakpoint:  breakpoint.Config{DefaultInterval: 5},
		HistorySize: timetravel.DefaultMaxSize,
	}
}

// ConfigFrom 从应用配置构建会话配置
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Approval: approval.EngineConfig{
			AutoApprove:        cfg.Approval.AutoApprove,
			AutoApproveLowRisk: cfg.Approval.AutoApproveLowRisk,
			DefaultTimeout:     cfg.Approval.DefaultTimeout,
			HistoryLimit:       cfg.Approval.HistoryLimit,
		},
		Breakpoint: breakpoint.Config{
			PauseOnHit:      cfg.Breakpoint.PauseOnHit,
			DefaultInterval: cfg.Breakpoint.DefaultInterval,
		},
		HistorySize: cfg.History.MaxSize,
	}
}

// Option 会话选项
type Option func(*options)

type options struct {
	bus           events.Bus
	decisionStore approval.DecisionStore
	feedbackStore feedback.Store
	classifier    *approval.Classifier
}

// WithBus 使用外部事件总线，默认每个会话新建一个 Dispatcher
func WithBus(bus events.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithDecisionStore 永久记忆决策的后端
func WithDecisionStore(s approval.DecisionStore) Option {
	return func(o *options) { o.decisionStore = s }
}

// WithFeedbackStore 反馈持久化后端
func WithFeedbackStore(s feedback.Store) Option {
	return func(o *options) { o.feedbackStore = s }
}

// WithClassifier 自定义风险分类器
func WithClassifier(c *approval.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// Session 一个 Agent 循环对应的一组人在回路组件。
// 暂停闸门、待审批列表与快照历史都按会话隔离，并发的独立会话各自持有一个实例。
type Session struct {
	ID          string
	Bus         events.Bus
	Approvals   *approval.Engine
	Breakpoints *breakpoint.Controller
	History     *timetravel.History
	Feedback    *feedback.Collector
	Workflows   *workflow.Orchestrator

	guard   *Guard
	cfg     Config
	ownsBus bool
	logger  *zap.Logger
}

// New 创建会话
func New(cfg Config, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id))

	bus, ownsBus := o.bus, false
	if bus == nil {
		bus, ownsBus = events.NewDispatcher(logger), true
	}

	var engineOpts []approval.EngineOption
	if o.decisionStore != nil {
		engineOpts = append(engineOpts, approval.WithDecisionStore(o.decisionStore))
	}
	if o.classifier != nil {
		engineOpts = append(engineOpts, approval.WithClassifier(o.classifier))
	}
	var feedbackOpts []feedback.Option
	if o.feedbackStore != nil {
		feedbackOpts = append(feedbackOpts, feedback.WithStore(o.feedbackStore))
	}

	engine := approval.NewEngine(cfg.Approval, bus, logger, engineOpts...)
	s := &Session{
		ID:          id,
		Bus:         bus,
		Approvals:   engine,
		Breakpoints: breakpoint.NewController(cfg.Breakpoint, bus, logger),
		History:     timetravel.NewHistory(cfg.HistorySize, bus, logger),
		Feedback:    feedback.NewCollector(bus, logger, feedbackOpts...),
		Workflows:   workflow.NewOrchestrator(engine, logger),
		cfg:         cfg,
		ownsBus:     ownsBus,
		logger:      logger.With(zap.String("component", "session")),
	}
	s.guard = newGuard(s)
	s.logger.Info("session started")
	return s
}

// Config 会话配置
func (s *Session) Config() Config { return s.cfg }

// Guard 返回会话唯一的守卫，对话记录随之保存在会话中
func (s *Session) Guard() *Guard {
	return s.guard
}

// Close 取消全部待审批请求、放开暂停闸门并清除会话级记忆决策。
// 阻塞中的 Agent 循环会立即返回。
func (s *Session) Close() {
	cancelled := s.Approvals.CancelAllPending()
	s.Breakpoints.Resume()
	s.Approvals.ClearSessionDecisions(context.Background())
	if s.ownsBus {
		s.Bus.Stop()
	}
	s.logger.Info("session closed", zap.Int("cancelled_requests", cancelled))
}
