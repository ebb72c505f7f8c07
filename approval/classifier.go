package approval

import (
	"fmt"
	"slices"
	"strings"
)

// =============================================================================
// 🎯 风险分类
// =============================================================================

// DefaultHighRiskActions 工具名片段 → 高风险动作
var DefaultHighRiskActions = map[string][]string{
	"file_operations":     {"delete", "write", "move"},
	"system_control":      {"shutdown", "restart", "sleep"},
	"process_management":  {"kill", "terminate"},
	"service_control":     {"stop", "restart", "disable"},
	"security_operations": {"change_permissions", "modify_firewall"},
}

// DefaultSensitiveTools 敏感工具，至少为中风险
var DefaultSensitiveTools = []string{
	"keyboard_mouse",
	"credentials_manager",
	"send_email",
	"automation_operations",
	"schedule_task",
}

// Classifier 根据工具名和参数给出风险等级。纯函数，无内部可变状态。
type Classifier struct {
	highRisk  map[string][]string
	sensitive map[string]struct{}
}

// ClassifierOption 配置分类器
type ClassifierOption func(*Classifier)

// WithHighRiskActions 追加高风险规则
func WithHighRiskActions(tool string, actions ...string) ClassifierOption {
	return func(c *Classifier) {
		c.highRisk[tool] = append(c.highRisk[tool], actions...)
	}
}

// WithSensitiveTools 追加敏感工具
func WithSensitiveTools(tools ...string) ClassifierOption {
	return func(c *Classifier) {
		for _, t := range tools {
			c.sensitive[t] = struct{}{}
		}
	}
}

// NewClassifier 创建带默认规则表的分类器
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		highRisk:  make(map[string][]string, len(DefaultHighRiskActions)),
		sensitive: make(map[string]struct{}, len(DefaultSensitiveTools)),
	}
	for tool, actions := range DefaultHighRiskActions {
		c.highRisk[tool] = append([]string(nil), actions...)
	}
	for _, t := range DefaultSensitiveTools {
		c.sensitive[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify 返回风险等级，规则按顺序求值，首个命中即返回：
// 高风险表 → 敏感工具 → 工具专属规则 → 默认低风险。
func (c *Classifier) Classify(toolID string, args map[string]any) Risk {
	action := stringArg(args, "action")

	for pattern, actions := range c.highRisk {
		if strings.Contains(toolID, pattern) && slices.Contains(actions, action) {
			return RiskHigh
		}
	}
	if c.IsSensitive(toolID) {
		return RiskMedium
	}

	switch toolID {
	case "file_operations":
		switch action {
		case "delete":
			return RiskCritical
		case "write":
			return RiskHigh
		}
	case "system_control":
		return RiskHigh
	}
	return RiskLow
}

// IsSensitive 判断是否为敏感工具
func (c *Classifier) IsSensitive(toolID string) bool {
	_, ok := c.sensitive[toolID]
	return ok
}

// TypeFor 根据工具推导审批类型
func (c *Classifier) TypeFor(toolID string, args map[string]any) Type {
	action := stringArg(args, "action")
	switch {
	case strings.Contains(toolID, "file") && (action == "write" || action == "delete"):
		return TypeFileWrite
	case strings.Contains(toolID, "system"):
		return TypeSystemChange
	case strings.Contains(toolID, "network") || strings.Contains(toolID, "http"):
		return TypeNetwork
	case c.IsSensitive(toolID):
		return TypeSensitiveAction
	default:
		return TypeToolCall
	}
}

// Describe 生成给人看的动作描述
func (c *Classifier) Describe(toolID string, args map[string]any) string {
	action := stringArg(args, "action")
	if action == "" {
		action = "execute"
	}

	switch toolID {
	case "file_operations":
		return fmt.Sprintf("File operation: %s on %s", action, stringArgOr(args, "path", "unknown path"))
	case "keyboard_mouse":
		return fmt.Sprintf("Input: %s - %s", action, stringArgOr(args, "text", stringArg(args, "key")))
	case "system_control":
		return fmt.Sprintf("System: %s", action)
	case "process_management":
		return strings.TrimSpace(fmt.Sprintf("Process: %s %s", action, stringArg(args, "name")))
	case "app_control":
		return strings.TrimSpace(fmt.Sprintf("App: %s %s", action, stringArg(args, "app_name")))
	case "browser_control":
		return strings.TrimSpace(fmt.Sprintf("Browser: %s %s", action, stringArgOr(args, "url", stringArg(args, "query"))))
	case "send_email":
		return fmt.Sprintf("Email to: %s", stringArg(args, "to"))
	default:
		return fmt.Sprintf("%s: %s", toolID, action)
	}
}

func stringArg(args map[string]any, key string) string {
	return stringArgOr(args, key, "")
}

func stringArgOr(args map[string]any, key, fallback string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return fallback
		}
		return s
	}
	return fmt.Sprint(v)
}
