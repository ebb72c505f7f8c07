package feedback

import (
	"time"

	"github.com/BaSui01/agentgate/events"
)

// CollectedEvent 收到一条反馈
type CollectedEvent struct {
	EntryID  string    `json:"entry_id"`
	Rating   int       `json:"rating"`
	ToolName string    `json:"tool_name,omitempty"`
	Time     time.Time `json:"timestamp"`
}

func (e *CollectedEvent) Timestamp() time.Time   { return e.Time }
func (e *CollectedEvent) Type() events.EventType { return events.EventFeedbackCollected }
