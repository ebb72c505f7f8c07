package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/timetravel"
	"github.com/BaSui01/agentgate/types"
)

// StateRestorer 回滚成功后接收目标快照，通常是 session.Guard
type StateRestorer interface {
	Restore(snap timetravel.Snapshot)
}

// HistoryHandler 状态历史与回滚
type HistoryHandler struct {
	history  *timetravel.History
	restorer StateRestorer
	logger   *zap.Logger
}

// NewHistoryHandler 创建历史处理器，restorer 可为 nil
func NewHistoryHandler(history *timetravel.History, restorer StateRestorer, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{history: history, restorer: restorer, logger: logger.With(zap.String("handler", "history"))}
}

// HandleList GET /api/v1/history
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.history.List())
}

// HandleGet GET /api/v1/history/{id}
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, ok := h.history.Get(id)
	if !ok {
		WriteError(w, r, types.NewNotFoundError(types.ErrSnapshotNotFound, "snapshot "+id+" not found"), h.logger)
		return
	}
	WriteSuccess(w, r, snap)
}

// HandleRollback POST /api/v1/history/rollback，body 为 {snapshot_id} 或 {steps}
func (h *HistoryHandler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	var body api.RollbackRequest
	if !DecodeJSONBody(w, r, &body, h.logger) {
		return
	}
	if (body.SnapshotID == "") == (body.Steps == 0) {
		WriteError(w, r, types.NewInvalidRequestError("exactly one of snapshot_id or steps is required"), h.logger)
		return
	}

	var (
		snap timetravel.Snapshot
		ok   bool
	)
	if body.SnapshotID != "" {
		snap, ok = h.history.RollbackTo(body.SnapshotID)
	} else {
		snap, ok = h.history.RollbackSteps(body.Steps)
	}
	if !ok {
		WriteError(w, r, types.NewNotFoundError(types.ErrSnapshotNotFound, "no snapshot matches the rollback target"), h.logger)
		return
	}

	if h.restorer != nil {
		h.restorer.Restore(snap)
	}
	h.logger.Info("state rolled back", zap.String("snapshot_id", snap.ID), zap.Int("step", snap.Step))
	WriteSuccess(w, r, snap)
}

// HandleExport GET /api/v1/history/export
func (h *HistoryHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.history.Export()
	if err != nil {
		WriteError(w, r, types.NewInternalError("failed to export history", err), h.logger)
		return
	}
	writeAttachment(w, "history.json", data)
}

func writeAttachment(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
