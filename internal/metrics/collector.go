// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/breakpoint"
	"github.com/BaSui01/agentgate/events"
	"github.com/BaSui01/agentgate/feedback"
	"github.com/BaSui01/agentgate/timetravel"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 审批指标
	approvalRequestsTotal *prometheus.CounterVec
	approvalOutcomesTotal *prometheus.CounterVec
	approvalWaitDuration  *prometheus.HistogramVec
	approvalsPending      prometheus.Gauge

	// 断点指标
	breakpointHitsTotal *prometheus.CounterVec
	agentPaused         prometheus.Gauge

	// 时间旅行指标
	snapshotsRetained prometheus.Gauge
	rollbacksTotal    prometheus.Counter

	// 反馈指标
	feedbackRatings *prometheus.HistogramVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	// 审批指标
	c.approvalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_requests_total",
			Help:      "Total number of approval requests waiting for a human",
		},
		[]string{"type", "risk"},
	)

	c.approvalOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_outcomes_total",
			Help:      "Total number of resolved approval requests by status",
		},
		[]string{"type", "status"},
	)

	c.approvalWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "approval_wait_duration_seconds",
			Help:      "Time between an approval request and its resolution",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	c.approvalsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "approvals_pending",
			Help:      "Number of approval requests waiting for a human",
		},
	)

	// 断点指标
	c.breakpointHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breakpoint_hits_total",
			Help:      "Total number of breakpoint hits",
		},
		[]string{"trigger"},
	)

	c.agentPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agent_paused",
			Help:      "1 while the agent loop is paused",
		},
	)

	// 时间旅行指标
	c.snapshotsRetained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots_retained",
			Help:      "Number of state snapshots currently retained",
		},
	)

	c.rollbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Total number of state history rollbacks",
		},
	)

	// 反馈指标
	c.feedbackRatings = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feedback_rating",
			Help:      "Human feedback ratings (1-5)",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"tool"},
	)

	// 数据库指标
	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 📡 事件订阅
// =============================================================================

// Observe 订阅事件总线，把审批、断点、快照与反馈事件转换为指标。
// 返回的订阅 ID 可用于 Unsubscribe。
func (c *Collector) Observe(bus events.Bus) string {
	return bus.Subscribe(events.AllEvents, c.handle)
}

func (c *Collector) handle(ev events.Event) {
	switch e := ev.(type) {
	case *approval.RequestedEvent:
		c.approvalRequestsTotal.WithLabelValues(string(e.ApprovalType), string(e.Risk)).Inc()
		c.approvalsPending.Inc()
	case *approval.RespondedEvent:
		c.recordOutcome(e.ApprovalType, e.Status, e.WaitDuration)
	case *approval.ClosedEvent:
		c.recordOutcome(e.ApprovalType, e.Status, e.WaitDuration)
	case *breakpoint.HitEvent:
		c.breakpointHitsTotal.WithLabelValues(string(e.Trigger)).Inc()
	case *breakpoint.PausedEvent:
		c.agentPaused.Set(1)
	case *breakpoint.ResumedEvent:
		c.agentPaused.Set(0)
	case *timetravel.StateChangedEvent:
		c.snapshotsRetained.Set(float64(e.Size))
	case *timetravel.RolledBackEvent:
		c.rollbacksTotal.Inc()
		c.snapshotsRetained.Set(float64(e.Size))
	case *feedback.CollectedEvent:
		c.feedbackRatings.WithLabelValues(e.ToolName).Observe(float64(e.Rating))
	}
}

func (c *Collector) recordOutcome(typ approval.Type, status approval.Status, wait time.Duration) {
	c.approvalOutcomesTotal.WithLabelValues(string(typ), string(status)).Inc()
	c.approvalWaitDuration.WithLabelValues(string(typ)).Observe(wait.Seconds())
	c.approvalsPending.Dec()
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
