package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// ApplicationHandler handles organizer and background-check applications
type ApplicationHandler struct {
	applicationService *service.ApplicationService
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(applicationService *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

// ListOwn handles GET /api/applications
func (h *ApplicationHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	list, err := h.applicationService.ListOwn(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list applications")
		return
	}
	WriteData(w, http.StatusOK, list)
}

// ListForReview handles GET /api/admin/applications?type=&status=
func (h *ApplicationHandler) ListForReview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := h.applicationService.ListForReview(r.Context(), actorFrom(r), q.Get("type"), q.Get("status"), limit)
	if err != nil {
		writeServiceError(w, r, err, "list applications for review")
		return
	}
	WriteData(w, http.StatusOK, list)
}

// ApplyOrganizer handles POST /api/applications/organizer
func (h *ApplicationHandler) ApplyOrganizer(w http.ResponseWriter, r *http.Request) {
	var req model.OrganizerApplicationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.applicationService.ApplyOrganizer(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "apply organizer")
		return
	}
	WriteData(w, http.StatusCreated, resp)
}

// ApproveOrganizer handles POST /api/admin/applications/organizer/{id}/approve
func (h *ApplicationHandler) ApproveOrganizer(w http.ResponseWriter, r *http.Request) {
	h.decideOrganizer(w, r, true)
}

// RejectOrganizer handles POST /api/admin/applications/organizer/{id}/reject
func (h *ApplicationHandler) RejectOrganizer(w http.ResponseWriter, r *http.Request) {
	h.decideOrganizer(w, r, false)
}

func (h *ApplicationHandler) decideOrganizer(w http.ResponseWriter, r *http.Request, approve bool) {
	req, ok := decodeDecision(w, r)
	if !ok {
		return
	}
	app, err := h.applicationService.DecideOrganizer(r.Context(), actorFrom(r), r.PathValue("id"), approve, req)
	if err != nil {
		writeServiceError(w, r, err, "decide organizer application")
		return
	}
	WriteData(w, http.StatusOK, app)
}

// DocumentUploadURL handles POST /api/applications/background-check/upload-url
func (h *ApplicationHandler) DocumentUploadURL(w http.ResponseWriter, r *http.Request) {
	var req model.UploadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target, err := h.applicationService.DocumentUploadURL(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "document upload url")
		return
	}
	WriteData(w, http.StatusOK, target)
}

// SubmitBackgroundCheck handles POST /api/applications/background-check
func (h *ApplicationHandler) SubmitBackgroundCheck(w http.ResponseWriter, r *http.Request) {
	var req model.BackgroundCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	app, err := h.applicationService.SubmitBackgroundCheck(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "submit background check")
		return
	}
	WriteData(w, http.StatusCreated, app)
}

// ApproveBackgroundCheck handles POST /api/admin/applications/background-check/{id}/approve
func (h *ApplicationHandler) ApproveBackgroundCheck(w http.ResponseWriter, r *http.Request) {
	h.decideBackgroundCheck(w, r, true)
}

// RejectBackgroundCheck handles POST /api/admin/applications/background-check/{id}/reject
func (h *ApplicationHandler) RejectBackgroundCheck(w http.ResponseWriter, r *http.Request) {
	h.decideBackgroundCheck(w, r, false)
}

func (h *ApplicationHandler) decideBackgroundCheck(w http.ResponseWriter, r *http.Request, approve bool) {
	req, ok := decodeDecision(w, r)
	if !ok {
		return
	}
	app, err := h.applicationService.DecideBackgroundCheck(r.Context(), actorFrom(r), r.PathValue("id"), approve, req)
	if err != nil {
		writeServiceError(w, r, err, "decide background check")
		return
	}
	WriteData(w, http.StatusOK, app)
}

// DocumentLink handles GET /api/admin/applications/background-check/{id}/document
func (h *ApplicationHandler) DocumentLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.applicationService.DocumentLink(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "document link")
		return
	}
	WriteData(w, http.StatusOK, link)
}

// decodeDecision allows an empty body; the review note is optional.
func decodeDecision(w http.ResponseWriter, r *http.Request) (model.DecisionRequest, bool) {
	var req model.DecisionRequest
	if err := DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return req, false
	}
	return req, true
}
