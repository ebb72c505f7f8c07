package api

import (
	"time"

	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/breakpoint"
)

// =============================================================================
// 审批
// =============================================================================

// RespondRequest 答复一个待审批请求
type RespondRequest struct {
	Approved bool `json:"approved"`
	// 记住该决定，后续相同 (类型, 标题) 的请求直接复用
	Remember bool `json:"remember,omitempty"`
	// 仅在当前会话内记住
	SessionOnly bool `json:"session_only,omitempty"`
	// 人工修改后的参数，仅允许 editable_fields 中的键
	ModifiedValues map[string]any `json:"modified_values,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}

// RespondResponse 答复结果
type RespondResponse struct {
	ID     string          `json:"id"`
	Status approval.Status `json:"status"`
}

// CancelResponse 批量取消结果
type CancelResponse struct {
	Cancelled int `json:"cancelled"`
}

// =============================================================================
// 控制
// =============================================================================

// ControlStatus 当前运行状态
type ControlStatus struct {
	Paused      bool `json:"paused"`
	Step        int  `json:"step"`
	Pending     int  `json:"pending"`
	Snapshots   int  `json:"snapshots"`
	Breakpoints int  `json:"breakpoints"`
}

// =============================================================================
// 断点
// =============================================================================

// BreakpointRequest 新建断点
type BreakpointRequest struct {
	ID          string             `json:"id,omitempty"`
	Trigger     breakpoint.Trigger `json:"trigger"`
	ToolName    string             `json:"tool_name,omitempty"`
	Interval    int                `json:"interval,omitempty"`
	Condition   string             `json:"condition,omitempty"`
	Description string             `json:"description,omitempty"`
	// 省略时默认启用
	Enabled *bool `json:"enabled,omitempty"`
}

// ToBreakpoint 转换为断点定义
func (r BreakpointRequest) ToBreakpoint() breakpoint.Breakpoint {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return breakpoint.Breakpoint{
		ID:          r.ID,
		Trigger:     r.Trigger,
		Enabled:     enabled,
		ToolName:    r.ToolName,
		Interval:    r.Interval,
		Condition:   r.Condition,
		Description: r.Description,
	}
}

// EnableRequest 启用或停用断点
type EnableRequest struct {
	Enabled bool `json:"enabled"`
}

// =============================================================================
// 历史
// =============================================================================

// RollbackRequest 回滚到指定快照或回退若干步，二者只能选其一
type RollbackRequest struct {
	SnapshotID string `json:"snapshot_id,omitempty"`
	Steps      int    `json:"steps,omitempty"`
}

// =============================================================================
// 反馈
// =============================================================================

// FeedbackRequest 提交反馈
type FeedbackRequest struct {
	Rating   int      `json:"rating"`
	Comment  string   `json:"comment,omitempty"`
	ActionID string   `json:"action_id,omitempty"`
	ToolName string   `json:"tool_name,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// =============================================================================
// 工作流
// =============================================================================

// WorkflowRequest 定义多级审批工作流
type WorkflowRequest struct {
	Name  string          `json:"name"`
	Steps []approval.Type `json:"steps"`
}

// =============================================================================
// 事件流
// =============================================================================

// EventMessage WebSocket 推送的事件信封
type EventMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
