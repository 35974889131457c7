package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// SuggestionHandler handles feature suggestions and votes
type SuggestionHandler struct {
	suggestionService *service.SuggestionService
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(suggestionService *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

// Create handles POST /api/suggestions
func (h *SuggestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSuggestionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := h.suggestionService.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "create suggestion")
		return
	}
	WriteData(w, http.StatusCreated, s)
}

// List handles GET /api/suggestions?sort=votes|new
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	// anonymous viewers get has_voted=false
	viewerID := middleware.GetUserID(r.Context())

	suggestions, err := h.suggestionService.List(r.Context(), r.URL.Query().Get("sort"), viewerID, limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "list suggestions")
		return
	}
	WriteCollection(w, http.StatusOK, suggestions, pageInfo(limit, offset, len(suggestions)))
}

// Vote handles POST /api/suggestions/{id}/vote
func (h *SuggestionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	s, err := h.suggestionService.Vote(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "vote")
		return
	}
	WriteData(w, http.StatusOK, s)
}

// Unvote handles DELETE /api/suggestions/{id}/vote
func (h *SuggestionHandler) Unvote(w http.ResponseWriter, r *http.Request) {
	s, err := h.suggestionService.Unvote(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "unvote")
		return
	}
	WriteData(w, http.StatusOK, s)
}

// SetStatus handles POST /api/admin/suggestions/{id}/status
func (h *SuggestionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req model.SetSuggestionStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := h.suggestionService.SetStatus(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "set suggestion status")
		return
	}
	WriteData(w, http.StatusOK, s)
}
