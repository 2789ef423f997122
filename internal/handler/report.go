package handler

import (
	"net/http"

	"github.com/hanbit-dev/fleamart/internal/domain"
	"github.com/hanbit-dev/fleamart/internal/service"
)

// ReportHandler handles user-submitted reports.
type ReportHandler struct {
	reports *service.ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *service.ReportStore) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// HandleSubmit files a report against a seller or a listing.
// POST /api/reports
// Request:  {"targetUserId":1,"targetProductId":2,"reason":"fraud","detail":"..."}
// Response: {"report": {...}}
func (h *ReportHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetUserID    int64  `json:"targetUserId"`
		TargetProductID int64  `json:"targetProductId"`
		Reason          string `json:"reason"`
		Detail          string `json:"detail"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	report, err := h.reports.Submit(r.Context(), service.SubmitReportInput{
		TargetUserID:    req.TargetUserID,
		TargetProductID: req.TargetProductID,
		Reason:          domain.ReportReason(req.Reason),
		Detail:          req.Detail,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"report": toReportDTO(*report),
	})
}
