package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentgate/api"
	"github.com/BaSui01/agentgate/feedback"
	"github.com/BaSui01/agentgate/types"
)

// FeedbackHandler 反馈收集
type FeedbackHandler struct {
	collector *feedback.Collector
	logger    *zap.Logger
}

// NewFeedbackHandler 创建反馈处理器
func NewFeedbackHandler(collector *feedback.Collector, logger *zap.Logger) *FeedbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackHandler{collector: collector, logger: logger.With(zap.String("handler", "feedback"))}
}

// FeedbackList GET /api/v1/feedback 的响应体
type FeedbackList struct {
	Entries []feedback.Entry `json:"entries"`
	Stats   feedback.Stats   `json:"stats"`
}

// HandleCollect POST /api/v1/feedback。评分越界时被截断到 1..5，不报错。
func (h *FeedbackHandler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	var body api.FeedbackRequest
	if !DecodeJSONBody(w, r, &body, h.logger) {
		return
	}
	if body.Rating == 0 {
		WriteError(w, r, types.NewInvalidRequestError(
			fmt.Sprintf("rating is required (%d-%d)", feedback.MinRating, feedback.MaxRating)), h.logger)
		return
	}

	entry := h.collector.Collect(body.Rating, feedback.CollectOptions{
		Comment:  body.Comment,
		ActionID: body.ActionID,
		ToolName: body.ToolName,
		Tags:     body.Tags,
	})
	WriteCreated(w, r, entry)
}

// HandleList GET /api/v1/feedback?tool=name
func (h *FeedbackHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries := h.collector.Entries()
	if tool := r.URL.Query().Get("tool"); tool != "" {
		entries = h.collector.ByTool(tool)
	}
	WriteSuccess(w, r, FeedbackList{Entries: entries, Stats: h.collector.Stats()})
}

// HandleExport GET /api/v1/feedback/export
func (h *FeedbackHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.collector.Export()
	if err != nil {
		WriteError(w, r, types.NewInternalError("failed to export feedback", err), h.logger)
		return
	}
	writeAttachment(w, "feedback.json", data)
}
