package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// ModerationHandler handles content reports
type ModerationHandler struct {
	moderationService *service.ModerationService
}

// NewModerationHandler creates a new moderation handler
func NewModerationHandler(moderationService *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

// CreateReport handles POST /api/reports
func (h *ModerationHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := h.moderationService.CreateReport(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "create report")
		return
	}
	WriteData(w, http.StatusCreated, report)
}

// ListReports handles GET /api/admin/reports?status=
func (h *ModerationHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	reports, err := h.moderationService.ListReports(r.Context(), actorFrom(r), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "list reports")
		return
	}
	WriteCollection(w, http.StatusOK, reports, pageInfo(limit, offset, len(reports)))
}

// ResolveReport handles POST /api/admin/reports/{id}/resolve
func (h *ModerationHandler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	var req model.ResolveReportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := h.moderationService.ResolveReport(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "resolve report")
		return
	}
	WriteData(w, http.StatusOK, report)
}
