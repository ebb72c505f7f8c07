package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/breakpoint"
	"github.com/BaSui01/agentgate/types"
)

// BreakpointHandler 断点管理
type BreakpointHandler struct {
	controller *breakpoint.Controller
	logger     *zap.Logger
}

// NewBreakpointHandler 创建断点处理器
func NewBreakpointHandler(controller *breakpoint.Controller, logger *zap.Logger) *BreakpointHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakpointHandler{controller: controller, logger: logger.With(zap.String("handler", "breakpoint"))}
}

// HandleList GET /api/v1/breakpoints
func (h *BreakpointHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.controller.List())
}

// HandleAdd POST /api/v1/breakpoints
func (h *BreakpointHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var body api.BreakpointRequest
	if !DecodeJSONBody(w, r, &body, h.logger) {
		return
	}

	id, err := h.controller.Add(body.ToBreakpoint())
	if err != nil {
		WriteError(w, r, types.NewInvalidRequestError(err.Error()), h.logger)
		return
	}
	bp, _ := h.controller.Get(id)
	WriteCreated(w, r, bp)
}

// HandleDelete DELETE /api/v1/breakpoints/{id}
func (h *BreakpointHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.controller.Remove(id) {
		h.notFound(w, r, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEnable POST /api/v1/breakpoints/{id}/enable
func (h *BreakpointHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body api.EnableRequest
	if !DecodeJSONBody(w, r, &body, h.logger) {
		return
	}
	if !h.controller.Enable(id, body.Enabled) {
		h.notFound(w, r, id)
		return
	}
	bp, _ := h.controller.Get(id)
	WriteSuccess(w, r, bp)
}

// HandleTrigger POST /api/v1/breakpoints/{id}/trigger，命中并暂停
func (h *BreakpointHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.controller.Trigger(id) {
		h.notFound(w, r, id)
		return
	}
	bp, _ := h.controller.Get(id)
	WriteSuccess(w, r, bp)
}

func (h *BreakpointHandler) notFound(w http.ResponseWriter, r *http.Request, id string) {
	WriteError(w, r, types.NewNotFoundError(types.ErrBreakpointNotFound, "breakpoint "+id+" not found"), h.logger)
}
