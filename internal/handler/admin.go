package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// AdminHandler handles the admin dashboard and user management
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context(), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err, "admin stats")
		return
	}
	WriteData(w, http.StatusOK, stats)
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	users, err := h.adminService.ListUsers(r.Context(), actorFrom(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "list users")
		return
	}
	WriteCollection(w, http.StatusOK, users, pageInfo(limit, offset, len(users)))
}

// SetVerification handles PATCH /api/admin/users/{id}/verification
func (h *AdminHandler) SetVerification(w http.ResponseWriter, r *http.Request) {
	var req model.SetVerificationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.adminService.SetVerification(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "set verification")
		return
	}
	WriteData(w, http.StatusOK, p)
}

// SetRole handles PATCH /api/admin/users/{id}/role
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req model.SetRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.adminService.SetRole(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "set role")
		return
	}
	WriteData(w, http.StatusOK, u)
}
