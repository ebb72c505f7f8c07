package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/types"
)

// =============================================================================
// ✅ 审批 Handler
// =============================================================================

// ApprovalHandler 人工应答入口
type ApprovalHandler struct {
	engine *approval.Engine
	logger *zap.Logger
}

// NewApprovalHandler 创建审批处理器
func NewApprovalHandler(engine *approval.Engine, logger *zap.Logger) *ApprovalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalHandler{engine: engine, logger: logger.With(zap.String("handler", "approval"))}
}

// HandlePending GET /api/v1/approvals
func (h *ApprovalHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.engine.Pending())
}

// HandleGet GET /api/v1/approvals/{id}，待审批与已决议的请求都可查询
func (h *ApprovalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, ok := h.engine.Get(id)
	if !ok {
		WriteError(w, r, types.NewNotFoundError(types.ErrApprovalNotFound, "approval "+id+" not found"), h.logger)
		return
	}
	WriteSuccess(w, r, req)
}

// HandleHistory GET /api/v1/approvals/history?limit=N
func (h *ApprovalHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, r, types.NewInvalidRequestError("limit must be a non-negative integer"), h.logger)
			return
		}
		limit = n
	}
	WriteSuccess(w, r, h.engine.History(limit))
}

// HandleRespond POST /api/v1/approvals/{id}/respond
func (h *ApprovalHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body api.RespondRequest
	if !DecodeJSONBody(w, r, &body, h.logger) {
		return
	}

	req, ok := h.engine.RespondTo(r.Context(), id, body.Approved, approval.RespondOptions{
		Remember:       body.Remember,
		SessionOnly:    body.SessionOnly,
		ModifiedValues: body.ModifiedValues,
		Reason:         body.Reason,
	})
	if !ok {
		// 区分不存在与已决议
		if _, exists := h.engine.Get(id); exists {
			WriteError(w, r, types.NewError(types.ErrApprovalResolved, "approval "+id+" is already resolved"), h.logger)
			return
		}
		WriteError(w, r, types.NewNotFoundError(types.ErrApprovalNotFound, "approval "+id+" not found"), h.logger)
		return
	}

	h.logger.Info("approval answered",
		zap.String("id", id),
		zap.Bool("approved", body.Approved),
		zap.Bool("remember", body.Remember),
	)
	WriteSuccess(w, r, api.RespondResponse{ID: id, Status: req.Status()})
}

// HandleCancel POST /api/v1/approvals/cancel
func (h *ApprovalHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, api.CancelResponse{Cancelled: h.engine.CancelAllPending()})
}

// HandleDecisions GET /api/v1/approvals/decisions
func (h *ApprovalHandler) HandleDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := h.engine.Decisions(r.Context())
	if err != nil {
		WriteError(w, r, types.NewError(types.ErrStorage, "failed to list decisions").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, r, decisions)
}

// HandleClearDecisions DELETE /api/v1/approvals/decisions
func (h *ApprovalHandler) HandleClearDecisions(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearAllDecisions(r.Context()); err != nil {
		WriteError(w, r, types.NewError(types.ErrStorage, "failed to clear decisions").WithCause(err), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
