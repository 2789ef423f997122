package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hanbit-dev/fleamart/internal/service"
)

// AdminHandler handles moderation endpoints: blocking sellers, reviewing
// reports, and reading the activity log. Every route is admin-gated.
type AdminHandler struct {
	catalog *service.CatalogStore
	reports *service.ReportStore
	audit   *service.AuditLog
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(catalog *service.CatalogStore, reports *service.ReportStore, audit *service.AuditLog) *AdminHandler {
	return &AdminHandler{catalog: catalog, reports: reports, audit: audit}
}

// HandleBlockSeller hides a seller's listings from regular viewers.
// POST /api/admin/sellers/{id}/block
// Response: 204 No Content
func (h *AdminHandler) HandleBlockSeller(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, h.catalog.BlockSeller)
}

// HandleUnblockSeller restores a seller's listings.
// POST /api/admin/sellers/{id}/unblock
// Response: 204 No Content
func (h *AdminHandler) HandleUnblockSeller(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, h.catalog.UnblockSeller)
}

func (h *AdminHandler) setBlocked(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid seller id.")
		return
	}
	if err := op(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListReports returns the unprocessed report queue.
// GET /api/admin/reports
// Response: {"reports": [...]}
func (h *AdminHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.ListOpen(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": toReportDTOs(reports),
	})
}

// HandleResolveReport marks a report processed, optionally blocking the
// reported seller in the same step.
// POST /api/admin/reports/{id}/resolve
// Request:  {"blockSeller":true}
// Response: 204 No Content
func (h *AdminHandler) HandleResolveReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report id.")
		return
	}

	var req struct {
		BlockSeller bool `json:"blockSeller"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.reports.Resolve(r.Context(), id, req.BlockSeller); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleActivityLog returns the retained activity log entries, oldest first.
// GET /api/admin/activity
// Response: {"entries": [...]}
func (h *AdminHandler) HandleActivityLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.Entries(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": toAuditEntryDTOs(entries),
	})
}
