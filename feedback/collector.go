package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/events"
)

const storeTimeout = 5 * time.Second

// Option Collector 选项
type Option func(*Collector)

// WithStore 写穿到持久化存储
func WithStore(s Store) Option {
	return func(c *Collector) { c.store = s }
}

// Collector 收集人对 Agent 输出的评分与评论
type Collector struct {
	mu      sync.RWMutex
	entries []Entry
	store   Store

	bus    events.Bus
	logger *zap.Logger
}

// NewCollector 创建反馈收集器
func NewCollector(bus events.Bus, logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		bus:    bus,
		logger: logger.With(zap.String("component", "feedback")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load 从存储加载历史反馈，替换内存中的条目
func (c *Collector) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	entries, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load feedback: %w", err)
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	c.logger.Info("feedback loaded", zap.Int("count", len(entries)))
	return nil
}

// Collect 记录一条反馈，评分会被限制在 [1,5]。
// 存储失败只记录日志，内存中的条目照常保留。
func (c *Collector) Collect(rating int, opts CollectOptions) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Rating:    ClampRating(rating),
		Comment:   opts.Comment,
		ActionID:  opts.ActionID,
		ToolName:  opts.ToolName,
		Tags:      append([]string(nil), opts.Tags...),
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := c.store.Save(ctx, e); err != nil {
			c.logger.Warn("failed to persist feedback", zap.String("id", e.ID), zap.Error(err))
		}
		cancel()
	}

	if rating != e.Rating {
		c.logger.Debug("rating clamped", zap.Int("given", rating), zap.Int("stored", e.Rating))
	}
	events.Publish(c.bus, &CollectedEvent{
		EntryID:  e.ID,
		Rating:   e.Rating,
		ToolName: e.ToolName,
		Time:     e.Timestamp,
	})
	return e.clone()
}

// AverageRating 平均评分，没有反馈时为 0
func (c *Collector) AverageRating() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return average(c.entries)
}

// Entries 全部反馈副本
func (c *Collector) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.clone()
	}
	return out
}

// ByTool 某个工具的反馈
func (c *Collector) ByTool(name string) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Entry
	for _, e := range c.entries {
		if e.ToolName == name {
			out = append(out, e.clone())
		}
	}
	return out
}

// Stats 数量、平均分与各分值分布
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{
		Count:     len(c.entries),
		Average:   average(c.entries),
		Histogram: make(map[int]int, MaxRating),
		ByTool:    make(map[string]float64),
	}
	for r := MinRating; r <= MaxRating; r++ {
		s.Histogram[r] = 0
	}
	perTool := make(map[string][]Entry)
	for _, e := range c.entries {
		s.Histogram[e.Rating]++
		if e.ToolName != "" {
			perTool[e.ToolName] = append(perTool[e.ToolName], e)
		}
	}
	for tool, entries := range perTool {
		s.ByTool[tool] = average(entries)
	}
	return s
}

// Export 以 JSON 列表导出全部反馈
func (c *Collector) Export() ([]byte, error) {
	data, err := json.MarshalIndent(c.Entries(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export feedback: %w", err)
	}
	return data, nil
}

func average(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, e := range entries {
		sum += e.Rating
	}
	return float64(sum) / float64(len(entries))
}
