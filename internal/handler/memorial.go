package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// MemorialHandler handles memorial endpoints
type MemorialHandler struct {
	memorialService *service.MemorialService
}

// NewMemorialHandler creates a new memorial handler
func NewMemorialHandler(memorialService *service.MemorialService) *MemorialHandler {
	return &MemorialHandler{memorialService: memorialService}
}

// Create handles POST /api/memorials
func (h *MemorialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMemorialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.memorialService.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "create memorial")
		return
	}
	WriteData(w, http.StatusCreated, m)
}

// List handles GET /api/memorials
func (h *MemorialHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	memorials, err := h.memorialService.ListPublic(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "list memorials")
		return
	}
	WriteCollection(w, http.StatusOK, memorials, pageInfo(limit, offset, len(memorials)))
}

// Get handles GET /api/memorials/{id}
func (h *MemorialHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.memorialService.Get(r.Context(), optionalActor(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get memorial")
		return
	}
	WriteData(w, http.StatusOK, m)
}

// Update handles PATCH /api/memorials/{id}
func (h *MemorialHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateMemorialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.memorialService.Update(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "update memorial")
		return
	}
	WriteData(w, http.StatusOK, m)
}

// Delete handles DELETE /api/memorials/{id}
func (h *MemorialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.memorialService.Delete(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "delete memorial")
		return
	}
	WriteNoContent(w)
}

// PhotoUpload handles POST /api/memorials/{id}/photo-upload
func (h *MemorialHandler) PhotoUpload(w http.ResponseWriter, r *http.Request) {
	var req model.UploadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target, err := h.memorialService.PhotoUpload(r.Context(), actorFrom(r), r.PathValue("id"), req.ContentType)
	if err != nil {
		writeServiceError(w, r, err, "memorial photo upload")
		return
	}
	WriteData(w, http.StatusOK, target)
}

// Gifts handles GET /api/memorials/{id}/gifts
func (h *MemorialHandler) Gifts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	gifts, err := h.memorialService.ListGifts(r.Context(), optionalActor(r), r.PathValue("id"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "list memorial gifts")
		return
	}
	WriteCollection(w, http.StatusOK, gifts, pageInfo(limit, offset, len(gifts)))
}
