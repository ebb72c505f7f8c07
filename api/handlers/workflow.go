package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/types"
	"github.com/BaSui01/agentgate/workflow"
)

// WorkflowHandler 多级审批工作流定义
type WorkflowHandler struct {
	orchestrator *workflow.Orchestrator
	logger       *zap.Logger
}

// NewWorkflowHandler 创建工作流处理器
func NewWorkflowHandler(o *workflow.Orchestrator, logger *zap.Logger) *WorkflowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowHandler{orchestrator: o, logger: logger.With(zap.String("handler", "workflow"))}
}

// HandleList GET /api/v1/workflows
func (h *WorkflowHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.orchestrator.Definitions())
}

// HandleDefine POST /api/v1/workflows，同名定义会被覆盖
func (h *WorkflowHandler) HandleDefine(w http.ResponseWriter, r *http.Request) {
	var body api.WorkflowRequest
	if !DecodeJSONBody(w, r, &body, h.logger) {
		return
	}
	if err := h.orchestrator.Define(body.Name, body.Steps...); err != nil {
		WriteError(w, r, types.NewInvalidRequestError(err.Error()), h.logger)
		return
	}
	WriteCreated(w, r, workflow.Definition{Name: body.Name, Steps: body.Steps})
}

// HandleRemove DELETE /api/v1/workflows/{name}
func (h *WorkflowHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !h.orchestrator.Remove(name) {
		WriteError(w, r, types.NewNotFoundError(types.ErrWorkflowNotFound, "workflow "+name+" not found"), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
