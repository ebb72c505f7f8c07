package approval

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"
)

// =============================================================================
// 🧩 常用审批类别的便捷封装（Create + Wait）
// =============================================================================

const maxDisplayCode = 200

// RequestPermission 申请某项权限
func (e *Engine) RequestPermission(ctx context.Context, permission, reason string) bool {
	req := e.Create(ctx, TypePermission,
		"Permission: "+permission,
		reason,
		map[string]any{"permission": permission},
	)
	return e.Wait(ctx, req, true).Allowed()
}

// ConfirmAction 确认一个可能有破坏性的动作
func (e *Engine) ConfirmAction(ctx context.Context, action, details string) bool {
	if details == "" {
		details = fmt.Sprintf("Are you sure you want to %s?", action)
	}
	req := e.Create(ctx, TypeConfirmation,
		"Confirm: "+action,
		details,
		map[string]any{"action": action},
	)
	return e.Wait(ctx, req, true).Allowed()
}

// ConfirmSensitive 确认敏感操作
func (e *Engine) ConfirmSensitive(ctx context.Context, operation, target, impact string) bool {
	req := e.Create(ctx, TypeSensitiveAction,
		"Sensitive: "+operation,
		fmt.Sprintf("This will %s on %s. %s", operation, target, impact),
		map[string]any{"operation": operation, "target": target, "impact": impact},
		WithRisk(RiskHigh),
	)
	return e.Wait(ctx, req, true).Allowed()
}

// ConfirmExecution 确认代码或命令执行，描述中的代码截断到 200 个字符
func (e *Engine) ConfirmExecution(ctx context.Context, codeType, code string) bool {
	display := truncateRunes(code, maxDisplayCode)
	req := e.Create(ctx, TypeExecution,
		"Execute "+codeType,
		fmt.Sprintf("The agent wants to execute the following %s:\n\n%s", codeType, display),
		map[string]any{"code_type": codeType, "code": code},
		WithRisk(RiskHigh),
	)
	return e.Wait(ctx, req, true).Allowed()
}

// truncateRunes 按字符截断，超长时追加 "..."
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// ConfirmFileWrite 确认文件写入
func (e *Engine) ConfirmFileWrite(ctx context.Context, path, operation string) bool {
	req := e.Create(ctx, TypeFileWrite,
		"File: "+operation,
		fmt.Sprintf("The agent wants to %s the file: %s", operation, path),
		map[string]any{"path": path, "operation": operation},
		WithRisk(RiskHigh),
	)
	return e.Wait(ctx, req, true).Allowed()
}

// =============================================================================
// 🔧 工具调用审批
// =============================================================================

// RequiresApproval 判断工具调用是否需要人工审批。
// 已记忆为始终允许时不需要；低风险不需要；中、高、严重风险需要。
// 记忆为拒绝时需要，随后的请求会直接以 denied 决议。
func (e *Engine) RequiresApproval(ctx context.Context, toolID string, args map[string]any) bool {
	key := DecisionKey{Type: e.classifier.TypeFor(toolID, args), Title: toolID}
	if d, ok := e.lookup(ctx, e.permanent, key); ok {
		return !d.Approved
	}
	if d, ok := e.lookup(ctx, e.session, key); ok {
		return !d.Approved
	}

	return e.classifier.Classify(toolID, args).AtLeast(RiskMedium)
}

// RequestTool 为一次工具调用创建审批请求。
// 标题为工具名，因此记住该决定即对该工具“始终允许/拒绝”；全部参数均可编辑。
func (e *Engine) RequestTool(ctx context.Context, toolID string, args map[string]any, opts ...RequestOption) *Request {
	editable := make([]string, 0, len(args))
	for k := range args {
		editable = append(editable, k)
	}
	sort.Strings(editable)

	base := []RequestOption{
		WithRisk(e.classifier.Classify(toolID, args)),
		WithEditableFields(editable...),
		withToolName(toolID),
	}
	return e.Create(ctx,
		e.classifier.TypeFor(toolID, args),
		toolID,
		e.classifier.Describe(toolID, args),
		args,
		append(base, opts...)...,
	)
}
