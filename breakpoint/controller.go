package breakpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/events"
)

// Config 断点控制器配置
type Config struct {
	// PauseOnHit 命中任意断点时自动暂停
	PauseOnHit bool
	// DefaultInterval 周期断点未指定间隔时使用
	DefaultInterval int
}

// HitHandler 断点命中回调
type HitHandler func(Breakpoint)

// Controller 断点控制器。
// 维护 running ⇄ paused 状态机与一组断点，每个 Agent 循环一个实例。
// 所有 Check 共享同一个单调步数计数器，周期断点按“任意检查次数”计数。
type Controller struct {
	mu          sync.RWMutex
	cfg         Config
	breakpoints []*Breakpoint
	step        int
	paused      bool
	resumeCh    chan struct{}
	handlers    []HitHandler

	bus    events.Bus
	logger *zap.Logger
}

// NewController 创建断点控制器
func NewController(cfg Config, bus events.Bus, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = 5
	}
	return &Controller{
		cfg:    cfg,
		bus:    bus,
		logger: logger.With(zap.String("component", "breakpoint")),
	}
}

// =============================================================================
// ⏯️ 暂停 / 恢复
// =============================================================================

// Pause 进入暂停状态
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = true
	c.resumeCh = make(chan struct{})
	step := c.step
	c.mu.Unlock()

	c.logger.Info("agent paused", zap.Int("step", step))
	events.Publish(c.bus, &PausedEvent{Step: step, Time: time.Now()})
}

// Resume 恢复运行，唤醒所有 WaitIfPaused 调用方
func (c *Controller) Resume() {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = false
	close(c.resumeCh)
	step := c.step
	c.mu.Unlock()

	c.logger.Info("agent resumed", zap.Int("step", step))
	events.Publish(c.bus, &ResumedEvent{Step: step, Time: time.Now()})
}

// IsPaused 是否处于暂停状态
func (c *Controller) IsPaused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// WaitIfPaused 暂停时阻塞，直到恢复、超时或 ctx 结束。
// timeout <= 0 表示不限时。返回 true 表示控制器处于运行状态。
func (c *Controller) WaitIfPaused(ctx context.Context, timeout time.Duration) bool {
	c.mu.RLock()
	if !c.paused {
		c.mu.RUnlock()
		return true
	}
	ch := c.resumeCh
	c.mu.RUnlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ch:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}

// =============================================================================
// 🔴 断点管理
// =============================================================================

// Add 添加断点并返回其 ID
func (c *Controller) Add(bp Breakpoint) (string, error) {
	if bp.Trigger == TriggerPeriodic && bp.Interval <= 0 {
		bp.Interval = c.cfg.DefaultInterval
	}
	if err := bp.validate(); err != nil {
		return "", err
	}
	if bp.ID == "" {
		bp.ID = uuid.NewString()
	}
	bp.HitCount = 0
	bp.CreatedAt = time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.breakpoints {
		if existing.ID == bp.ID {
			return "", fmt.Errorf("breakpoint %s already exists", bp.ID)
		}
	}
	c.breakpoints = append(c.breakpoints, &bp)

	c.logger.Debug("breakpoint added",
		zap.String("id", bp.ID),
		zap.String("trigger", string(bp.Trigger)),
	)
	return bp.ID, nil
}

// Remove 删除断点
func (c *Controller) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, bp := range c.breakpoints {
		if bp.ID == id {
			c.breakpoints = append(c.breakpoints[:i], c.breakpoints[i+1:]...)
			return true
		}
	}
	return false
}

// Enable 启用或禁用断点
func (c *Controller) Enable(id string, enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bp := c.find(id); bp != nil {
		bp.Enabled = enabled
		return true
	}
	return false
}

// Get 返回断点副本
func (c *Controller) Get(id string) (Breakpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if bp := c.find(id); bp != nil {
		return *bp, true
	}
	return Breakpoint{}, false
}

// List 按添加顺序返回全部断点副本
func (c *Controller) List() []Breakpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Breakpoint, len(c.breakpoints))
	for i, bp := range c.breakpoints {
		out[i] = *bp
	}
	return out
}

// ClearAll 删除全部断点
func (c *Controller) ClearAll() {
	c.mu.Lock()
	c.breakpoints = nil
	c.mu.Unlock()
}

// Step 当前步数
func (c *Controller) Step() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.step
}

// OnHit 注册命中回调，需要硬停的调用方可以在回调里调用 Pause
func (c *Controller) OnHit(h HitHandler) {
	c.mu.Lock()
	c.handlers = append(c.handlers, h)
	c.mu.Unlock()
}

func (c *Controller) find(id string) *Breakpoint {
	for _, bp := range c.breakpoints {
		if bp.ID == id {
			return bp
		}
	}
	return nil
}

// =============================================================================
// 🎯 检查
// =============================================================================

// Check 步数加一，并按添加顺序返回第一个匹配的已启用断点；没有匹配时返回 nil。
// 检查本身不会暂停，除非配置了 PauseOnHit。
func (c *Controller) Check(in CheckInput) *Breakpoint {
	c.mu.Lock()
	c.step++
	step := c.step
	var hit *Breakpoint
	for _, bp := range c.breakpoints {
		if bp.matches(in, step) {
			bp.HitCount++
			cp := *bp
			hit = &cp
			break
		}
	}
	c.mu.Unlock()

	if hit != nil {
		c.onHit(*hit, in.ToolName, step)
	}
	return hit
}

// Trigger 手动触发断点：计一次命中、发布事件并暂停
func (c *Controller) Trigger(id string) bool {
	c.mu.Lock()
	bp := c.find(id)
	if bp == nil {
		c.mu.Unlock()
		return false
	}
	bp.HitCount++
	hit := *bp
	step := c.step
	c.mu.Unlock()

	c.onHit(hit, "", step)
	c.Pause()
	return true
}

func (c *Controller) onHit(bp Breakpoint, tool string, step int) {
	c.logger.Info("breakpoint hit",
		zap.String("id", bp.ID),
		zap.String("trigger", string(bp.Trigger)),
		zap.String("tool", tool),
		zap.Int("step", step),
	)

	events.Publish(c.bus, &HitEvent{
		BreakpointID: bp.ID,
		Trigger:      bp.Trigger,
		ToolName:     tool,
		Step:         step,
		HitCount:     bp.HitCount,
		Time:         time.Now(),
	})

	c.mu.RLock()
	handlers := append([]HitHandler(nil), c.handlers...)
	pauseOnHit := c.cfg.PauseOnHit
	c.mu.RUnlock()

	for _, h := range handlers {
		c.safeCall(h, bp)
	}
	if pauseOnHit {
		c.Pause()
	}
}

func (c *Controller) safeCall(h HitHandler, bp Breakpoint) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("breakpoint hit handler panicked",
				zap.String("id", bp.ID),
				zap.Any("recover", r),
			)
		}
	}()
	h(bp)
}
