package timetravel

import (
	"time"

	"github.com/BaSui01/agentgate/events"
)

// StateChangedEvent 新快照已保存
type StateChangedEvent struct {
	SnapshotID string    `json:"snapshot_id"`
	Step       int       `json:"step"`
	Size       int       `json:"size"`
	Time       time.Time `json:"timestamp"`
}

func (e *StateChangedEvent) Timestamp() time.Time   { return e.Time }
func (e *StateChangedEvent) Type() events.EventType { return events.EventStateChanged }

// RolledBackEvent 历史已回滚
type RolledBackEvent struct {
	SnapshotID string    `json:"snapshot_id"`
	Step       int       `json:"step"`
	Discarded  int       `json:"discarded"`
	Size       int       `json:"size"`
	Time       time.Time `json:"timestamp"`
}

func (e *RolledBackEvent) Timestamp() time.Time   { return e.Time }
func (e *RolledBackEvent) Type() events.EventType { return events.EventRolledBack }
