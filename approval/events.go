package approval

import (
	"time"

	"github.com/BaSui01/agentgate/events"
)

// RequestedEvent 新的待审批请求
type RequestedEvent struct {
	RequestID      string         `json:"request_id"`
	ApprovalType   Type           `json:"approval_type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Risk           Risk           `json:"risk"`
	Details        map[string]any `json:"details,omitempty"`
	EditableFields []string       `json:"editable_fields,omitempty"`
	ToolName       string         `json:"tool_name,omitempty"`
	Timeout        time.Duration  `json:"timeout"`
	Time           time.Time      `json:"timestamp"`
}

func (e *RequestedEvent) Timestamp() time.Time   { return e.Time }
func (e *RequestedEvent) Type() events.EventType { return events.EventApprovalRequested }

// RespondedEvent 人工已作出决定
type RespondedEvent struct {
	RequestID    string        `json:"request_id"`
	ApprovalType Type          `json:"approval_type"`
	Title        string        `json:"title"`
	Status       Status        `json:"status"`
	Remembered   bool          `json:"remembered"`
	Scope        Scope         `json:"scope,omitempty"`
	Responder    string        `json:"responder,omitempty"`
	WaitDuration time.Duration `json:"wait_duration"`
	Time         time.Time     `json:"timestamp"`
}

func (e *RespondedEvent) Timestamp() time.Time   { return e.Time }
func (e *RespondedEvent) Type() events.EventType { return events.EventApprovalResponded }

// ClosedEvent 请求因超时或取消而结束
type ClosedEvent struct {
	RequestID    string        `json:"request_id"`
	ApprovalType Type          `json:"approval_type"`
	Status       Status        `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	WaitDuration time.Duration `json:"wait_duration"`
	Time         time.Time     `json:"timestamp"`
}

func (e *ClosedEvent) Timestamp() time.Time   { return e.Time }
func (e *ClosedEvent) Type() events.EventType { return events.EventApprovalClosed }
