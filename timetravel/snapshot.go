package timetravel

import (
	"slices"
	"time"

	"github.com/BaSui01/agentgate/types"
)

// Snapshot 一个执行步骤结束后的状态快照
type Snapshot struct {
	ID            string          `json:"id"`
	Step          int             `json:"step"`
	Timestamp     time.Time       `json:"timestamp"`
	Messages      []types.Message `json:"messages"`
	PendingAction map[string]any  `json:"pending_action,omitempty"`
	ToolsUsed     []string        `json:"tools_used,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
}

// SaveOptions Save 的可选字段
type SaveOptions struct {
	PendingAction map[string]any
	ToolsUsed     []string
	Metadata      map[string]any
}

// Clone 深拷贝快照，调用方拿到的副本与历史互不影响
func (s Snapshot) Clone() Snapshot {
	s.Messages = types.CloneMessages(s.Messages)
	s.PendingAction = types.CloneMap(s.PendingAction)
	s.ToolsUsed = slices.Clone(s.ToolsUsed)
	s.Metadata = types.CloneMap(s.Metadata)
	return s
}
