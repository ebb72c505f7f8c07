package breakpoint

import (
	"fmt"
	"strings"
	"time"
)

// Trigger 断点触发条件
type Trigger string

const (
	TriggerBeforeTool  Trigger = "before_tool"
	TriggerAfterTool   Trigger = "after_tool"
	TriggerOnError     Trigger = "on_error"
	TriggerOnSensitive Trigger = "on_sensitive"
	TriggerPeriodic    Trigger = "periodic"
	TriggerConditional Trigger = "conditional"
	TriggerManual      Trigger = "manual"
)

// Breakpoint 断点定义
type Breakpoint struct {
	ID          string    `json:"id"`
	Trigger     Trigger   `json:"trigger"`
	Enabled     bool      `json:"enabled"`
	ToolName    string    `json:"tool_name,omitempty"`
	Interval    int       `json:"interval,omitempty"`
	Condition   string    `json:"condition,omitempty"`
	Description string    `json:"description,omitempty"`
	HitCount    int       `json:"hit_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeTool 在工具调用前停下；tool 为空时匹配任意工具
func BeforeTool(tool string) Breakpoint {
	return Breakpoint{Trigger: TriggerBeforeTool, ToolName: tool, Enabled: true}
}

// AfterTool 在工具调用后停下；tool 为空时匹配任意工具
func AfterTool(tool string) Breakpoint {
	return Breakpoint{Trigger: TriggerAfterTool, ToolName: tool, Enabled: true}
}

// OnError 工具出错时停下
func OnError() Breakpoint {
	return Breakpoint{Trigger: TriggerOnError, Enabled: true}
}

// OnSensitive 敏感动作时停下
func OnSensitive() Breakpoint {
	return Breakpoint{Trigger: TriggerOnSensitive, Enabled: true}
}

// Every 每 n 步停下一次
func Every(n int) Breakpoint {
	return Breakpoint{Trigger: TriggerPeriodic, Interval: n, Enabled: true}
}

// When 上下文中出现 "key=value" 时停下
func When(condition string) Breakpoint {
	return Breakpoint{Trigger: TriggerConditional, Condition: condition, Enabled: true}
}

// Manual 只能通过 Controller.Trigger 触发的断点
func Manual(description string) Breakpoint {
	return Breakpoint{Trigger: TriggerManual, Description: description, Enabled: true}
}

// CheckInput 一次检查的输入
type CheckInput struct {
	ToolName    string
	After       bool
	IsError     bool
	IsSensitive bool
	Context     map[string]any
}

func (b *Breakpoint) validate() error {
	switch b.Trigger {
	case TriggerBeforeTool, TriggerAfterTool, TriggerOnError, TriggerOnSensitive, TriggerManual:
		return nil
	case TriggerPeriodic:
		if b.Interval <= 0 {
			return fmt.Errorf("periodic breakpoint needs a positive interval")
		}
		return nil
	case TriggerConditional:
		if _, _, ok := parseCondition(b.Condition); !ok {
			return fmt.Errorf("invalid condition %q, want key=value", b.Condition)
		}
		return nil
	default:
		return fmt.Errorf("unknown trigger %q", b.Trigger)
	}
}

func (b *Breakpoint) matches(in CheckInput, step int) bool {
	if !b.Enabled {
		return false
	}
	switch b.Trigger {
	case TriggerBeforeTool:
		return !in.After && (b.ToolName == "" || b.ToolName == in.ToolName)
	case TriggerAfterTool:
		return in.After && (b.ToolName == "" || b.ToolName == in.ToolName)
	case TriggerOnError:
		return in.IsError
	case TriggerOnSensitive:
		return in.IsSensitive
	case TriggerPeriodic:
		return b.Interval > 0 && step%b.Interval == 0
	case TriggerConditional:
		key, want, ok := parseCondition(b.Condition)
		if !ok {
			return false
		}
		v, present := in.Context[key]
		return present && fmt.Sprint(v) == want
	default:
		return false
	}
}

func parseCondition(cond string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(cond, "=")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	return key, value, ok && key != ""
}
