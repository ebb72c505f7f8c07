package timetravel

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/events"
	"github.com/BaSui01/agentgate/types"
)

// DefaultMaxSize 默认保留的快照数量
const DefaultMaxSize = 50

// History 有界、只追加的快照历史，支持回滚。
// 快照按创建顺序保存，超过容量时淘汰最旧的一条；回滚会丢弃目标之后的全部快照。
type History struct {
	mu        sync.RWMutex
	snapshots []Snapshot
	step      int
	maxSize   int

	bus    events.Bus
	logger *zap.Logger
}

// NewHistory 创建快照历史，maxSize <= 0 时使用 DefaultMaxSize
func NewHistory(maxSize int, bus events.Bus, logger *zap.Logger) *History {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{
		maxSize: maxSize,
		bus:     bus,
		logger:  logger.With(zap.String("component", "timetravel")),
	}
}

// Save 深拷贝消息与选项并追加一条快照
func (h *History) Save(messages []types.Message, opts SaveOptions) Snapshot {
	snap := Snapshot{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		Messages:      messages,
		PendingAction: opts.PendingAction,
		ToolsUsed:     opts.ToolsUsed,
		Metadata:      opts.Metadata,
	}.Clone()

	h.mu.Lock()
	h.step++
	snap.Step = h.step
	h.snapshots = append(h.snapshots, snap)
	if over := len(h.snapshots) - h.maxSize; over > 0 {
		h.snapshots = append([]Snapshot(nil), h.snapshots[over:]...)
	}
	size := len(h.snapshots)
	h.mu.Unlock()

	h.logger.Debug("snapshot saved",
		zap.String("id", snap.ID),
		zap.Int("step", snap.Step),
		zap.Int("messages", len(snap.Messages)),
	)
	events.Publish(h.bus, &StateChangedEvent{
		SnapshotID: snap.ID,
		Step:       snap.Step,
		Size:       size,
		Time:       snap.Timestamp,
	})
	return snap.Clone()
}

// RollbackTo 截断历史到指定快照（含），步数重置为该快照的步数
func (h *History) RollbackTo(id string) (Snapshot, bool) {
	h.mu.Lock()
	idx := h.indexOf(id)
	if idx < 0 {
		h.mu.Unlock()
		return Snapshot{}, false
	}
	return h.truncateLocked(idx)
}

// RollbackSteps 从末尾回退 n 条（n >= 1），n=1 时倒数第二条成为最新
func (h *History) RollbackSteps(n int) (Snapshot, bool) {
	h.mu.Lock()
	idx := len(h.snapshots) - 1 - n
	if n < 1 || idx < 0 {
		h.mu.Unlock()
		return Snapshot{}, false
	}
	return h.truncateLocked(idx)
}

// truncateLocked 需持有写锁，返回前释放
func (h *History) truncateLocked(idx int) (Snapshot, bool) {
	target := h.snapshots[idx]
	discarded := len(h.snapshots) - idx - 1
	h.snapshots = h.snapshots[:idx+1]
	h.step = target.Step
	size := len(h.snapshots)
	h.mu.Unlock()

	h.logger.Info("history rolled back",
		zap.String("id", target.ID),
		zap.Int("step", target.Step),
		zap.Int("discarded", discarded),
	)
	events.Publish(h.bus, &RolledBackEvent{
		SnapshotID: target.ID,
		Step:       target.Step,
		Discarded:  discarded,
		Size:       size,
		Time:       time.Now(),
	})
	return target.Clone(), true
}

func (h *History) indexOf(id string) int {
	for i := range h.snapshots {
		if h.snapshots[i].ID == id {
			return i
		}
	}
	return -1
}

// Get 按 ID 查找快照
func (h *History) Get(id string) (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if idx := h.indexOf(id); idx >= 0 {
		return h.snapshots[idx].Clone(), true
	}
	return Snapshot{}, false
}

// Latest 最新快照
func (h *History) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.snapshots) == 0 {
		return Snapshot{}, false
	}
	return h.snapshots[len(h.snapshots)-1].Clone(), true
}

// List 按创建顺序返回全部快照副本
func (h *History) List() []Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Snapshot, len(h.snapshots))
	for i := range h.snapshots {
		out[i] = h.snapshots[i].Clone()
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.snapshots)
}

// Step 最近一次保存（或回滚目标）的步数
func (h *History) Step() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.step
}

func (h *History) MaxSize() int { return h.maxSize }

// Clear 清空历史并把步数归零
func (h *History) Clear() {
	h.mu.Lock()
	h.snapshots = nil
	h.step = 0
	h.mu.Unlock()
	h.logger.Debug("history cleared")
}

// Export 以 JSON 导出全部快照
func (h *History) Export() ([]byte, error) {
	data, err := json.MarshalIndent(h.List(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export history: %w", err)
	}
	return data, nil
}
