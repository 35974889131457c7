package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// ProfileHandler handles profile endpoints
type ProfileHandler struct {
	profileService  *service.ProfileService
	memorialService *service.MemorialService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *service.ProfileService, memorialService *service.MemorialService) *ProfileHandler {
	return &ProfileHandler{
		profileService:  profileService,
		memorialService: memorialService,
	}
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetOwn(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "get profile")
		return
	}
	WriteData(w, http.StatusOK, profile)
}

// Update handles PATCH /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile, err := h.profileService.Update(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "update profile")
		return
	}
	WriteData(w, http.StatusOK, profile)
}

// GetByUsername handles GET /api/profiles/{username}
func (h *ProfileHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetByUsername(r.Context(), optionalActor(r), r.PathValue("username"))
	if err != nil {
		writeServiceError(w, r, err, "get profile")
		return
	}
	WriteData(w, http.StatusOK, profile)
}

// AvatarUpload handles POST /api/profile/avatar-upload
func (h *ProfileHandler) AvatarUpload(w http.ResponseWriter, r *http.Request) {
	var req model.UploadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target, err := h.profileService.AvatarUpload(r.Context(), middleware.GetUserID(r.Context()), req.ContentType)
	if err != nil {
		writeServiceError(w, r, err, "avatar upload")
		return
	}
	WriteData(w, http.StatusOK, target)
}

// Memorials handles GET /api/profile/memorials
func (h *ProfileHandler) Memorials(w http.ResponseWriter, r *http.Request) {
	memorials, err := h.memorialService.ListOwn(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list own memorials")
		return
	}
	WriteCollection(w, http.StatusOK, memorials, nil)
}
