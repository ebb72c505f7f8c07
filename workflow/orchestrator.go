package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/approval"
)

// ErrWorkflowNotFound 未定义的工作流
var ErrWorkflowNotFound = errors.New("workflow not found")

// Approver 工作流所需的审批能力，由 approval.Engine 实现
type Approver interface {
	Create(ctx context.Context, typ approval.Type, title, description string, details map[string]any, opts ...approval.RequestOption) *approval.Request
	Wait(ctx context.Context, req *approval.Request, blocking bool) approval.Status
}

// Definition 工作流定义：名称 → 有序的审批类型列表
type Definition struct {
	Name  string          `json:"name"`
	Steps []approval.Type `json:"steps"`
}

// Orchestrator 多步审批编排器。
// 按定义顺序逐步创建审批请求并等待，任一步未获批准即终止。
type Orchestrator struct {
	mu          sync.RWMutex
	definitions map[string][]approval.Type

	approver Approver
	logger   *zap.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(approver Approver, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		definitions: make(map[string][]approval.Type),
		approver:    approver,
		logger:      logger.With(zap.String("component", "workflow")),
	}
}

// Define 定义（或覆盖）一个工作流
func (o *Orchestrator) Define(name string, steps ...approval.Type) error {
	if name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(steps) == 0 {
		return fmt.Errorf("workflow %q needs at least one step", name)
	}
	for i, typ := range steps {
		if !typ.Valid() {
			return fmt.Errorf("workflow %q step %d: unknown approval type %q", name, i+1, typ)
		}
	}

	o.mu.Lock()
	o.definitions[name] = append([]approval.Type(nil), steps...)
	o.mu.Unlock()

	o.logger.Debug("workflow defined", zap.String("name", name), zap.Int("steps", len(steps)))
	return nil
}

// Remove 删除工作流定义
func (o *Orchestrator) Remove(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.definitions[name]; !ok {
		return false
	}
	delete(o.definitions, name)
	return true
}

// Definitions 按名称排序返回全部定义
func (o *Orchestrator) Definitions() []Definition {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Definition, 0, len(o.definitions))
	for name, steps := range o.definitions {
		out = append(out, Definition{Name: name, Steps: append([]approval.Type(nil), steps...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run 依次执行工作流的每一步，返回已决议的请求列表。
// 某一步的状态不是 approved（包括 modified、超时与取消）时立即停止，后续步骤不会创建。
func (o *Orchestrator) Run(ctx context.Context, name, title, description string, details map[string]any) ([]*approval.Request, error) {
	o.mu.RLock()
	steps, ok := o.definitions[name]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
	}

	results := make([]*approval.Request, 0, len(steps))
	for i, typ := range steps {
		stepTitle := fmt.Sprintf("[%d/%d] %s", i+1, len(steps), title)
		req := o.approver.Create(ctx, typ, stepTitle, description, details)
		status := o.approver.Wait(ctx, req, true)
		results = append(results, req)

		if status != approval.StatusApproved {
			o.logger.Info("workflow stopped",
				zap.String("workflow", name),
				zap.Int("step", i+1),
				zap.String("status", string(status)),
			)
			return results, nil
		}
	}

	o.logger.Info("workflow approved", zap.String("workflow", name), zap.Int("steps", len(steps)))
	return results, nil
}
