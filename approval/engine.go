package approval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/events"
	"github.com/BaSui01/agentgate/types"
)

const tracerName = "github.com/BaSui01/agentgate/approval"

// EngineConfig 审批引擎配置
type EngineConfig struct {
	// AutoApprove 跳过所有人工确认
	AutoApprove bool
	// AutoApproveLowRisk 风险为 low 的请求自动批准
	AutoApproveLowRisk bool
	// DefaultTimeout 请求未指定超时时的等待时长
	DefaultTimeout time.Duration
	// HistoryLimit 已答复请求的保留数量
	HistoryLimit int
}

// DefaultEngineConfig 返回默认配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultTimeout: 60 * time.Second,
		HistoryLimit:   100,
	}
}

// Engine 审批引擎（生产级）。
// 负责请求的创建、记忆决策短路、阻塞等待与人工答复的应用。
// Agent 循环在 Wait 中挂起，应答方（HTTP、CLI）从其他 goroutine 调用 Respond。
type Engine struct {
	classifier *Classifier
	permanent  DecisionStore
	session    *MemoryDecisionStore
	bus        events.Bus
	logger     *zap.Logger
	tracer     trace.Tracer

	mu      sync.RWMutex
	cfg     EngineConfig
	pending map[string]*Request
	// 已被答复方认领、正在写入记忆决策的请求
	answering map[string]*Request
	history   []*Request
}

// EngineOption 引擎选项
type EngineOption func(*Engine)

// WithDecisionStore 设置永久记忆决策的存储后端
func WithDecisionStore(store DecisionStore) EngineOption {
	return func(e *Engine) {
		if store != nil {
			e.permanent = store
		}
	}
}

// WithClassifier 设置风险分类器
func WithClassifier(c *Classifier) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// NewEngine 创建审批引擎
func NewEngine(cfg EngineConfig, bus events.Bus, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultEngineConfig()
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaults.DefaultTimeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaults.HistoryLimit
	}

	e := &Engine{
		classifier: NewClassifier(),
		permanent:  NewMemoryDecisionStore(),
		session:    NewMemoryDecisionStore(),
		bus:        bus,
		logger:     logger.With(zap.String("component", "approval")),
		tracer:     otel.Tracer(tracerName),
		cfg:        cfg,
		pending:    make(map[string]*Request),
		answering:  make(map[string]*Request),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RequestOption 请求选项
type RequestOption func(*Request)

// WithEditableFields 设置允许人工编辑的参数名
func WithEditableFields(fields ...string) RequestOption {
	return func(r *Request) {
		r.EditableFields = append([]string(nil), fields...)
	}
}

// WithTimeout 覆盖默认等待时长
func WithTimeout(d time.Duration) RequestOption {
	return func(r *Request) {
		r.Timeout = d
	}
}

// WithRisk 设置风险等级，默认为 medium
func WithRisk(risk Risk) RequestOption {
	return func(r *Request) {
		r.Risk = risk
	}
}

func withToolName(name string) RequestOption {
	return func(r *Request) {
		r.ToolName = name
	}
}

// Classifier 返回引擎使用的风险分类器
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// Config 返回当前配置
func (e *Engine) Config() EngineConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// SetAutoApprove 运行时切换全局自动批准
func (e *Engine) SetAutoApprove(on bool) {
	e.mu.Lock()
	e.cfg.AutoApprove = on
	e.mu.Unlock()
	e.logger.Info("auto approve changed", zap.Bool("enabled", on))
}

// SetAutoApproveLowRisk 运行时切换低风险自动批准
func (e *Engine) SetAutoApproveLowRisk(on bool) {
	e.mu.Lock()
	e.cfg.AutoApproveLowRisk = on
	e.mu.Unlock()
	e.logger.Info("auto approve low risk changed", zap.Bool("enabled", on))
}

// =============================================================================
// 🎯 请求生命周期
// =============================================================================

// Create 创建审批请求。
// 若存在匹配的记忆决策（先永久后会话）或开启了自动批准，返回已决议的请求且不进入待审批列表；
// 否则加入待审批列表并发布 RequestedEvent。
func (e *Engine) Create(ctx context.Context, typ Type, title, description string, details map[string]any, opts ...RequestOption) *Request {
	req := newRequest(uuid.NewString(), typ, title, description, details)
	for _, opt := range opts {
		opt(req)
	}

	cfg := e.Config()
	if req.Timeout <= 0 {
		req.Timeout = cfg.DefaultTimeout
	}

	key := DecisionKey{Type: typ, Title: title}
	if d, ok := e.lookup(ctx, e.permanent, key); ok {
		req.resolve(decisionStatus(d), decisionText(d, "Pre-approved", "Pre-denied"), nil, "")
		e.logger.Debug("request resolved by remembered decision",
			zap.String("request_id", req.ID),
			zap.String("key", key.String()),
			zap.Bool("approved", d.Approved),
		)
		return req
	}
	if d, ok := e.lookup(ctx, e.session, key); ok {
		req.resolve(decisionStatus(d), decisionText(d, "Session approved", "Session denied"), nil, "")
		e.logger.Debug("request resolved by session decision",
			zap.String("request_id", req.ID),
			zap.String("key", key.String()),
			zap.Bool("approved", d.Approved),
		)
		return req
	}
	if cfg.AutoApprove {
		req.resolve(StatusApproved, "Auto-approved", nil, "")
		return req
	}
	if cfg.AutoApproveLowRisk && req.Risk == RiskLow {
		req.resolve(StatusApproved, "Auto-approved (low risk)", nil, "")
		return req
	}

	e.mu.Lock()
	e.pending[req.ID] = req
	e.mu.Unlock()

	e.logger.Info("approval requested",
		zap.String("request_id", req.ID),
		zap.String("type", string(typ)),
		zap.String("title", title),
		zap.String("risk", string(req.Risk)),
	)

	events.Publish(e.bus, &RequestedEvent{
		RequestID:      req.ID,
		ApprovalType:   req.Type,
		Title:          req.Title,
		Description:    req.Description,
		Risk:           req.Risk,
		Details:        types.CloneMap(req.Details),
		EditableFields: append([]string(nil), req.EditableFields...),
		ToolName:       req.ToolName,
		Timeout:        req.Timeout,
		Time:           req.CreatedAt,
	})

	return req
}

// Wait 等待请求决议。
// 已决议的请求立即返回；blocking 为 false 时返回当前状态。
// 阻塞等待在超时后将请求置为 timeout 并移出待审批列表；ctx 取消时置为 cancelled。
func (e *Engine) Wait(ctx context.Context, req *Request, blocking bool) Status {
	if st := req.Status(); st.Terminal() || !blocking {
		return st
	}

	ctx, span := e.tracer.Start(ctx, "approval.wait", trace.WithAttributes(
		attribute.String("approval.id", req.ID),
		attribute.String("approval.type", string(req.Type)),
		attribute.String("approval.risk", string(req.Risk)),
	))
	defer span.End()

	timer := time.NewTimer(req.timeoutOr(e.Config().DefaultTimeout))
	defer timer.Stop()

	closed := true
	select {
	case <-req.Done():
	case <-timer.C:
		closed = e.close(req, StatusTimeout, "No response before timeout")
	case <-ctx.Done():
		closed = e.close(req, StatusCancelled, ctx.Err().Error())
	}
	if !closed {
		// 答复方已认领，等它写完决议
		<-req.Done()
	}

	st := req.Status()
	span.SetAttributes(attribute.String("approval.status", string(st)))
	return st
}

// RespondOptions 答复选项
type RespondOptions struct {
	// Remember 记住该决定，后续相同 (类型, 标题) 的请求直接复用
	Remember bool
	// SessionOnly 仅在当前会话内记住
	SessionOnly bool
	// ModifiedValues 人工编辑后的参数，仅在批准时生效
	ModifiedValues map[string]any
	// Reason 答复说明
	Reason string
}

// Respond 答复待审批请求。请求不在待审批列表中时为空操作并返回 false。
// 答复者从 ctx 中的用户 ID 读取。
func (e *Engine) Respond(ctx context.Context, id string, approved bool, opts RespondOptions) bool {
	_, ok := e.RespondTo(ctx, id, approved, opts)
	return ok
}

// RespondTo 同 Respond，成功时返回已决议的请求
func (e *Engine) RespondTo(ctx context.Context, id string, approved bool, opts RespondOptions) (*Request, bool) {
	responder, _ := types.UserID(ctx)

	// 认领：移出 pending 后超时与取消都不会再决议它
	e.mu.Lock()
	req, ok := e.pending[id]
	if !ok {
		e.mu.Unlock()
		return nil, false
	}
	delete(e.pending, id)
	e.answering[id] = req
	e.mu.Unlock()

	status := StatusDenied
	var modified map[string]any
	if approved {
		status = StatusApproved
		modified = filterEditable(req.EditableFields, opts.ModifiedValues)
		if len(modified) > 0 {
			status = StatusModified
		}
	}
	reason := opts.Reason
	if reason == "" {
		reason = defaultResponseText(status)
	}

	// 记忆决策在锁外写入（可能是 Redis 往返），且先于唤醒等待方
	var scope Scope
	if opts.Remember {
		scope = ScopePermanent
		if opts.SessionOnly {
			scope = ScopeSession
		}
		e.remember(ctx, RememberedDecision{
			Key:       DecisionKey{Type: req.Type, Title: req.Title},
			Approved:  approved,
			Scope:     scope,
			CreatedAt: time.Now(),
		})
	}

	e.mu.Lock()
	delete(e.answering, id)
	req.resolve(status, reason, modified, responder)
	e.history = append(e.history, req)
	if over := len(e.history) - e.cfg.HistoryLimit; over > 0 {
		e.history = append([]*Request(nil), e.history[over:]...)
	}
	e.mu.Unlock()

	e.logger.Info("approval responded",
		zap.String("request_id", id),
		zap.String("status", string(status)),
		zap.Bool("remember", opts.Remember),
		zap.String("responder", responder),
	)

	events.Publish(e.bus, &RespondedEvent{
		RequestID:    id,
		ApprovalType: req.Type,
		Title:        req.Title,
		Status:       status,
		Remembered:   opts.Remember,
		Scope:        scope,
		Responder:    responder,
		WaitDuration: req.ResolvedAt().Sub(req.CreatedAt),
		Time:         req.ResolvedAt(),
	})

	return req, true
}

// Approve 批准请求
func (e *Engine) Approve(ctx context.Context, id string, remember bool) bool {
	return e.Respond(ctx, id, true, RespondOptions{Remember: remember})
}

// Deny 拒绝请求
func (e *Engine) Deny(ctx context.Context, id string, remember bool) bool {
	return e.Respond(ctx, id, false, RespondOptions{Remember: remember})
}

// CancelAllPending 将所有待审批请求置为 cancelled，立即唤醒所有等待方。
func (e *Engine) CancelAllPending() int {
	e.mu.Lock()
	cancelled := make([]*Request, 0, len(e.pending))
	for id, req := range e.pending {
		if req.resolve(StatusCancelled, "Cancelled", nil, "") {
			cancelled = append(cancelled, req)
		}
		delete(e.pending, id)
	}
	e.mu.Unlock()

	if len(cancelled) > 0 {
		e.logger.Info("cancelled pending approvals", zap.Int("count", len(cancelled)))
	}
	for _, req := range cancelled {
		e.publishClosed(req, "Cancelled")
	}
	return len(cancelled)
}

// close 以超时或取消结束仍在 pending 中的请求；已被答复方认领时返回 false
func (e *Engine) close(req *Request, status Status, reason string) bool {
	e.mu.Lock()
	_, pending := e.pending[req.ID]
	ok := pending && req.resolve(status, reason, nil, "")
	if ok {
		delete(e.pending, req.ID)
	}
	e.mu.Unlock()

	if !ok {
		return false
	}
	e.logger.Warn("approval closed without response",
		zap.String("request_id", req.ID),
		zap.String("status", string(status)),
	)
	e.publishClosed(req, reason)
	return true
}

func (e *Engine) publishClosed(req *Request, reason string) {
	events.Publish(e.bus, &ClosedEvent{
		RequestID:    req.ID,
		ApprovalType: req.Type,
		Status:       req.Status(),
		Reason:       reason,
		WaitDuration: req.ResolvedAt().Sub(req.CreatedAt),
		Time:         req.ResolvedAt(),
	})
}

// =============================================================================
// 🔍 查询
// =============================================================================

// Pending 返回待审批请求，按创建时间排序
func (e *Engine) Pending() []*Request {
	e.mu.RLock()
	out := make([]*Request, 0, len(e.pending))
	for _, req := range e.pending {
		out = append(out, req)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Get 在待审批列表与历史中查找请求
func (e *Engine) Get(id string) (*Request, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if req, ok := e.pending[id]; ok {
		return req, true
	}
	if req, ok := e.answering[id]; ok {
		return req, true
	}
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ID == id {
			return e.history[i], true
		}
	}
	return nil, false
}

// History 返回最近 limit 条已答复请求，limit <= 0 时返回全部
func (e *Engine) History(limit int) []*Request {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := 0
	if limit > 0 && len(e.history) > limit {
		start = len(e.history) - limit
	}
	return append([]*Request(nil), e.history[start:]...)
}

// =============================================================================
// 🧠 记忆决策
// =============================================================================

// Decisions 返回两个作用域的全部记忆决策
func (e *Engine) Decisions(ctx context.Context) ([]RememberedDecision, error) {
	permanent, err := e.permanent.List(ctx)
	if err != nil {
		return nil, err
	}
	session, _ := e.session.List(ctx)
	return append(permanent, session...), nil
}

// Forget 删除指定键在两个作用域中的记忆
func (e *Engine) Forget(ctx context.Context, key DecisionKey) error {
	_ = e.session.Delete(ctx, key)
	return e.permanent.Delete(ctx, key)
}

// ClearSessionDecisions 清空会话级记忆
func (e *Engine) ClearSessionDecisions(ctx context.Context) {
	_ = e.session.Clear(ctx)
}

// ClearAllDecisions 清空全部记忆
func (e *Engine) ClearAllDecisions(ctx context.Context) error {
	_ = e.session.Clear(ctx)
	return e.permanent.Clear(ctx)
}

func (e *Engine) remember(ctx context.Context, d RememberedDecision) {
	store := DecisionStore(e.session)
	if d.Scope == ScopePermanent {
		store = e.permanent
	}
	if err := store.Put(ctx, d); err != nil {
		e.logger.Error("failed to remember decision",
			zap.String("key", d.Key.String()),
			zap.Error(err),
		)
	}
}

func (e *Engine) lookup(ctx context.Context, store DecisionStore, key DecisionKey) (RememberedDecision, bool) {
	d, ok, err := store.Get(ctx, key)
	if err != nil {
		e.logger.Warn("decision lookup failed", zap.String("key", key.String()), zap.Error(err))
		return RememberedDecision{}, false
	}
	return d, ok
}

func decisionStatus(d RememberedDecision) Status {
	if d.Approved {
		return StatusApproved
	}
	return StatusDenied
}

func decisionText(d RememberedDecision, approved, denied string) string {
	if d.Approved {
		return approved
	}
	return denied
}

func defaultResponseText(s Status) string {
	switch s {
	case StatusApproved:
		return "Approved by user"
	case StatusModified:
		return "Approved with modifications"
	default:
		return "Denied by user"
	}
}

// filterEditable 仅保留允许编辑的字段；未设置允许列表时全部保留
func filterEditable(allowed []string, values map[string]any) map[string]any {
	if len(values) == 0 {
		return nil
	}
	if len(allowed) == 0 {
		return types.CloneMap(values)
	}
	out := make(map[string]any)
	for _, k := range allowed {
		if v, ok := values[k]; ok {
			out[k] = types.CloneValue(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
