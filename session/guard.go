package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/breakpoint"
	"github.com/BaSui01/agentgate/timetravel"
	"github.com/BaSui01/agentgate/types"
)

var (
	// ErrDenied 工具调用未获批准（拒绝、超时或取消）
	ErrDenied = errors.New("tool call not approved")
	// ErrPaused 在暂停闸门上等待超时
	ErrPaused = errors.New("agent is paused")
)

// ToolCall Agent 提出的一次工具调用
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Executor 真正执行工具的外部函数，返回写回对话的文本结果
type Executor func(ctx context.Context, call ToolCall) (string, error)

// Outcome 一次受守卫的工具调用结果
type Outcome struct {
	// Call 实际执行（或拒绝）的调用，参数可能已被人工修改
	Call ToolCall
	// Request 审批请求，不需要审批时为 nil
	Request *approval.Request
	Result  string
	// Breakpoints 本次调用命中的断点 ID
	Breakpoints []string
	Snapshot    timetravel.Snapshot
}

// Guard 包裹 Agent 循环中的每一次工具调用。
// 依次经过暂停闸门、前置断点、风险审批、执行、后置断点，最后保存快照。
// Guard 维护对话记录，快照即这份记录的深拷贝；回滚后用 Restore 恢复。
type Guard struct {
	s *Session

	mu        sync.Mutex
	messages  []types.Message
	toolsUsed []string
}

func newGuard(s *Session) *Guard {
	return &Guard{s: s}
}

// Append 追加 Agent 循环自己产生的消息（用户输入、模型回复等）
func (g *Guard) Append(msgs ...types.Message) {
	g.mu.Lock()
	g.messages = append(g.messages, types.CloneMessages(msgs)...)
	g.mu.Unlock()
}

// Messages 当前对话记录副本
func (g *Guard) Messages() []types.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return types.CloneMessages(g.messages)
}

// Restore 用快照替换对话记录，配合 History.RollbackTo / RollbackSteps 使用
func (g *Guard) Restore(snap timetravel.Snapshot) {
	g.mu.Lock()
	g.messages = types.CloneMessages(snap.Messages)
	g.toolsUsed = slices.Clone(snap.ToolsUsed)
	g.mu.Unlock()
}

// Run 在人在回路的保护下执行一次工具调用。
// 未获批准时返回 ErrDenied（包装为 ACTION_DENIED 错误），执行器的错误原样包装返回。
func (g *Guard) Run(ctx context.Context, call ToolCall, exec Executor) (Outcome, error) {
	out := Outcome{Call: call}
	log := g.s.logger.With(zap.String("tool", call.Name), zap.String("call_id", call.ID))

	if err := g.waitIfPaused(ctx); err != nil {
		return out, err
	}

	engine := g.s.Approvals
	sensitive := engine.Classifier().IsSensitive(call.Name)
	if hit := g.s.Breakpoints.Check(breakpoint.CheckInput{
		ToolName:    call.Name,
		IsSensitive: sensitive,
		Context:     call.Arguments,
	}); hit != nil {
		out.Breakpoints = append(out.Breakpoints, hit.ID)
		if err := g.waitIfPaused(ctx); err != nil {
			return out, err
		}
	}

	if engine.RequiresApproval(ctx, call.Name, call.Arguments) {
		req := engine.RequestTool(ctx, call.Name, call.Arguments)
		status := engine.Wait(ctx, req, true)
		out.Request = req
		if !req.Allowed() {
			log.Info("tool call blocked", zap.String("status", string(status)))
			g.record(call, fmt.Sprintf("Tool call %s: %s", status, req.Response()))
			out.Snapshot = g.save(
				map[string]any{"tool": call.Name, "arguments": call.Arguments},
				map[string]any{"status": string(status), "request_id": req.ID},
			)
			return out, types.NewError(types.ErrActionDenied, fmt.Sprintf("%s %s", call.Name, status)).
				WithCause(ErrDenied).
				WithHTTPStatus(http.StatusForbidden)
		}
		out.Call.Arguments = req.EffectiveDetails()
	}

	result, execErr := exec(ctx, out.Call)
	out.Result = result

	if hit := g.s.Breakpoints.Check(breakpoint.CheckInput{
		ToolName:    call.Name,
		After:       true,
		IsError:     execErr != nil,
		IsSensitive: sensitive,
		Context:     out.Call.Arguments,
	}); hit != nil {
		out.Breakpoints = append(out.Breakpoints, hit.ID)
	}

	meta := map[string]any{"status": "executed"}
	if out.Request != nil {
		meta["request_id"] = out.Request.ID
	}
	if execErr != nil {
		meta["status"] = "failed"
		meta["error"] = execErr.Error()
		g.record(out.Call, "Error: "+execErr.Error())
	} else {
		g.record(out.Call, result)
	}
	g.mu.Lock()
	g.toolsUsed = append(g.toolsUsed, call.Name)
	g.mu.Unlock()
	out.Snapshot = g.save(nil, meta)

	if execErr != nil {
		log.Warn("tool execution failed", zap.Error(execErr))
		return out, fmt.Errorf("execute %s: %w", call.Name, execErr)
	}
	return out, nil
}

func (g *Guard) waitIfPaused(ctx context.Context) error {
	if g.s.Breakpoints.WaitIfPaused(ctx, g.s.cfg.PauseTimeout) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrPaused
}

// record 把调用与结果写入对话记录
func (g *Guard) record(call ToolCall, content string) {
	args, err := json.Marshal(call.Arguments)
	if err != nil {
		args = []byte("{}")
	}
	assistant := types.NewAssistantMessage("").WithToolCalls([]types.ToolCall{{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: args,
	}})
	g.Append(assistant, types.NewToolMessage(call.ID, call.Name, content))
}

// save 保存当前对话记录；pending 为被拦下、尚未执行的动作
func (g *Guard) save(pending, meta map[string]any) timetravel.Snapshot {
	g.mu.Lock()
	msgs := types.CloneMessages(g.messages)
	tools := slices.Clone(g.toolsUsed)
	g.mu.Unlock()

	return g.s.History.Save(msgs, timetravel.SaveOptions{
		PendingAction: pending,
		ToolsUsed:     tools,
		Metadata:      meta,
	})
}
