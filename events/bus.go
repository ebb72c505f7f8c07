package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventType 事件类型
type EventType string

const (
	EventApprovalRequested EventType = "approval_requested"
	EventApprovalResponded EventType = "approval_responded"
	EventApprovalClosed    EventType = "approval_closed"
	EventBreakpointHit     EventType = "breakpoint_hit"
	EventPaused            EventType = "paused"
	EventResumed           EventType = "resumed"
	EventStateChanged      EventType = "state_changed"
	EventRolledBack        EventType = "rolled_back"
	EventFeedbackCollected EventType = "feedback_collected"
)

// AllEvents 订阅全部事件类型时使用的通配类型
const AllEvents EventType = "*"

// subscriptionCounter 生成唯一订阅 ID
var subscriptionCounter int64

// Event 事件接口
type Event interface {
	Timestamp() time.Time
	Type() EventType
}

// Handler 事件处理器
type Handler func(Event)

// Bus 事件总线接口，由展示层订阅审批、断点与快照通知
type Bus interface {
	Publish(event Event)
	Subscribe(eventType EventType, handler Handler) string
	Unsubscribe(subscriptionID string)
	Stop()
}

// Dispatcher 同步事件总线。
// 处理器在发布者的 goroutine 中依次执行，panic 会被恢复并记录，
// 单个处理器失败不会影响请求决议或快照保存。
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler
	stopped  atomic.Bool
	logger   *zap.Logger
}

// NewDispatcher 创建事件总线
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[EventType]map[string]Handler),
		logger:   logger.With(zap.String("component", "event_bus")),
	}
}

// Publish 发布事件
func (d *Dispatcher) Publish(event Event) {
	if event == nil || d.stopped.Load() {
		return
	}

	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers[event.Type()])+len(d.handlers[AllEvents]))
	for _, h := range d.handlers[event.Type()] {
		handlers = append(handlers, h)
	}
	for _, h := range d.handlers[AllEvents] {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		d.invoke(h, event)
	}
}

func (d *Dispatcher) invoke(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("event_type", string(event.Type())),
				zap.Any("recover", r),
			)
		}
	}()
	h(event)
}

// Subscribe 订阅事件，eventType 为 AllEvents 时接收全部事件
func (d *Dispatcher) Subscribe(eventType EventType, handler Handler) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handlers[eventType] == nil {
		d.handlers[eventType] = make(map[string]Handler)
	}

	id := fmt.Sprintf("%s-%d", eventType, atomic.AddInt64(&subscriptionCounter, 1))
	d.handlers[eventType][id] = handler
	return id
}

// Unsubscribe 取消订阅
func (d *Dispatcher) Unsubscribe(subscriptionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for eventType, handlers := range d.handlers {
		if _, ok := handlers[subscriptionID]; ok {
			delete(handlers, subscriptionID)
			if len(handlers) == 0 {
				delete(d.handlers, eventType)
			}
			return
		}
	}
}

// Stop 停止事件总线，之后的 Publish 为空操作
func (d *Dispatcher) Stop() {
	d.stopped.Store(true)
}

// Publish 在 bus 为 nil 时忽略事件
func Publish(bus Bus, event Event) {
	if bus != nil {
		bus.Publish(event)
	}
}
