package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/approval"
	"github.com/BaSui01/agentgate/breakpoint"
	"github.com/BaSui01/agentgate/timetravel"
)

// ControlHandler 暂停/恢复与运行状态
type ControlHandler struct {
	breakpoints *breakpoint.Controller
	approvals   *approval.Engine
	history     *timetravel.History
	logger      *zap.Logger
}

// NewControlHandler 创建控制处理器
func NewControlHandler(bp *breakpoint.Controller, approvals *approval.Engine, history *timetravel.History, logger *zap.Logger) *ControlHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ControlHandler{
		breakpoints: bp,
		approvals:   approvals,
		history:     history,
		logger:      logger.With(zap.String("handler", "control")),
	}
}

// HandlePause POST /api/v1/control/pause
func (h *ControlHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.breakpoints.Pause()
	h.logger.Info("agent paused by responder")
	WriteSuccess(w, r, h.status())
}

// HandleResume POST /api/v1/control/resume
func (h *ControlHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.breakpoints.Resume()
	h.logger.Info("agent resumed by responder")
	WriteSuccess(w, r, h.status())
}

// HandleStatus GET /api/v1/control/status
func (h *ControlHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.status())
}

func (h *ControlHandler) status() api.ControlStatus {
	return api.ControlStatus{
		Paused:      h.breakpoints.IsPaused(),
		Step:        h.breakpoints.Step(),
		Pending:     len(h.approvals.Pending()),
		Snapshots:   h.history.Len(),
		Breakpoints: len(h.breakpoints.List()),
	}
}
