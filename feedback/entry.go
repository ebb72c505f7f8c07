package feedback

import (
	"slices"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Entry 一条人工反馈
type Entry struct {
	ID        string    `json:"id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	ActionID  string    `json:"action_id,omitempty"`
	ToolName  string    `json:"tool_name,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CollectOptions Collect 的可选字段
type CollectOptions struct {
	Comment  string
	ActionID string
	ToolName string
	Tags     []string
}

// Stats 反馈汇总
type Stats struct {
	Count     int         `json:"count"`
	Average   float64     `json:"average"`
	Histogram map[int]int `json:"histogram"`
	// 按工具名的平均分，未关联工具的反馈不计入
	ByTool map[string]float64 `json:"by_tool"`
}

// ClampRating 把评分限制在 [MinRating, MaxRating]
func ClampRating(r int) int {
	return min(max(r, MinRating), MaxRating)
}

func (e Entry) clone() Entry {
	e.Tags = slices.Clone(e.Tags)
	return e
}
