package breakpoint

import (
	"time"

	"github.com/BaSui01/agentgate/events"
)

// HitEvent 断点命中
type HitEvent struct {
	BreakpointID string    `json:"breakpoint_id"`
	Trigger      Trigger   `json:"trigger"`
	ToolName     string    `json:"tool_name,omitempty"`
	Step         int       `json:"step"`
	HitCount     int       `json:"hit_count"`
	Time         time.Time `json:"timestamp"`
}

func (e *HitEvent) Timestamp() time.Time   { return e.Time }
func (e *HitEvent) Type() events.EventType { return events.EventBreakpointHit }

// PausedEvent 控制器进入暂停
type PausedEvent struct {
	Step int       `json:"step"`
	Time time.Time `json:"timestamp"`
}

func (e *PausedEvent) Timestamp() time.Time   { return e.Time }
func (e *PausedEvent) Type() events.EventType { return events.EventPaused }

// ResumedEvent 控制器恢复运行
type ResumedEvent struct {
	Step int       `json:"step"`
	Time time.Time `json:"timestamp"`
}

func (e *ResumedEvent) Timestamp() time.Time   { return e.Time }
func (e *ResumedEvent) Type() events.EventType { return events.EventResumed }
