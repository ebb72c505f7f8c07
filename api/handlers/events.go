package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/events"
)

const (
	defaultEventBuffer = 64
	eventWriteTimeout  = 5 * time.Second
)

// EventsHandler 把事件总线推送到 WebSocket 客户端。
// 总线处理器在发布者 goroutine 中同步执行，这里只做非阻塞投递，
// 慢客户端的缓冲区满时丢弃事件，不会拖住审批或快照。
type EventsHandler struct {
	bus            events.Bus
	originPatterns []string
	buffer         int
	logger         *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewEventsHandler 创建事件流处理器。originPatterns 为空时只接受同源连接。
func NewEventsHandler(bus events.Bus, originPatterns []string, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{
		bus:            bus,
		originPatterns: originPatterns,
		buffer:         defaultEventBuffer,
		logger:         logger.With(zap.String("handler", "events")),
		done:           make(chan struct{}),
	}
}

// Close 结束所有活动的事件流，服务关闭时调用
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// HandleStream GET /api/v1/events?type=approval_requested,paused
func (h *EventsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	filter := parseEventFilter(r.URL.Query().Get("type"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		// Accept 已写出错误响应
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// 客户端只接收，CloseRead 负责处理对端的关闭帧
	ctx := conn.CloseRead(r.Context())

	ch := make(chan api.EventMessage, h.buffer)
	var dropped int
	var mu sync.Mutex
	subID := h.bus.Subscribe(events.AllEvents, func(e events.Event) {
		if len(filter) > 0 && !filter[e.Type()] {
			return
		}
		msg := api.EventMessage{Type: string(e.Type()), Timestamp: e.Timestamp(), Data: e}
		select {
		case ch <- msg:
		default:
			mu.Lock()
			dropped++
			mu.Unlock()
		}
	})
	defer h.bus.Unsubscribe(subID)

	h.logger.Debug("event stream opened", zap.String("remote", r.RemoteAddr))
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		h.logger.Debug("event stream closed", zap.String("remote", r.RemoteAddr), zap.Int("dropped", dropped))
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case msg := <-ch:
			if err := h.write(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

func (h *EventsHandler) write(ctx context.Context, conn *websocket.Conn, msg api.EventMessage) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func parseEventFilter(raw string) map[events.EventType]bool {
	if raw == "" {
		return nil
	}
	filter := make(map[events.EventType]bool)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			filter[events.EventType(part)] = true
		}
	}
	return filter
}
