// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	s := testutil.NewSession(t)
//	testutil.AnswerApprovals(t, s, true)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 2*time.Second)
//
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/events"
	"github.com/BaSui01/agentgate/session"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// =============================================================================
// 🧩 会话辅助
// =============================================================================

// NewSession 创建测试会话，审批默认 2 秒超时，测试结束时关闭
func NewSession(t *testing.T, opts ...session.Option) *session.Session {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Approval.DefaultTimeout = 2 * time.Second
	cfg.PauseTimeout = 2 * time.Second
	s := session.New(cfg, zap.NewNop(), opts...)
	t.Cleanup(s.Close)
	return s
}

// AnswerApprovals 在每个新请求出现时由另一个 goroutine 作答，模拟人工应答方
func AnswerApprovals(t *testing.T, s *session.Session, approved bool) {
	t.Helper()
	AnswerApprovalsWith(t, s, func(*approval.RequestedEvent) (bool, approval.RespondOptions) {
		return approved, approval.RespondOptions{}
	})
}

// AnswerApprovalsWith 按 decide 的结果作答
func AnswerApprovalsWith(t *testing.T, s *session.Session, decide func(*approval.RequestedEvent) (bool, approval.RespondOptions)) {
	t.Helper()
	id := s.Bus.Subscribe(events.EventApprovalRequested, func(e events.Event) {
		req, ok := e.(*approval.RequestedEvent)
		if !ok {
			return
		}
		approved, opts := decide(req)
		go s.Approvals.Respond(context.Background(), req.RequestID, approved, opts)
	})
	t.Cleanup(func() { s.Bus.Unsubscribe(id) })
}

// RecordEvents 记录指定类型的事件，返回读取快照的函数
func RecordEvents(t *testing.T, bus events.Bus, eventType events.EventType) func() []events.Event {
	t.Helper()
	rec := &recorder{}
	id := bus.Subscribe(eventType, rec.add)
	t.Cleanup(func() { bus.Unsubscribe(id) })
	return rec.snapshot
}

// =============================================================================
// ✅ 断言工具
// =============================================================================

// AssertEventuallyTrue 轮询直到条件成立或超时
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// MustJSON 序列化，失败时终止测试
func MustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

// MustParseJSON 反序列化，失败时终止测试
func MustParseJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return v
}
