package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// ForumHandler handles forum endpoints
type ForumHandler struct {
	forumService *service.ForumService
}

// NewForumHandler creates a new forum handler
func NewForumHandler(forumService *service.ForumService) *ForumHandler {
	return &ForumHandler{forumService: forumService}
}

// ListCategories handles GET /api/forums/categories
func (h *ForumHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.forumService.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list categories")
		return
	}
	WriteCollection(w, http.StatusOK, categories, nil)
}

// CreateCategory handles POST /api/forums/categories
func (h *ForumHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.forumService.CreateCategory(r.Context(), actorFrom(r), req)
	if err != nil {
		writeServiceError(w, r, err, "create category")
		return
	}
	WriteData(w, http.StatusCreated, c)
}

// ListTopics handles GET /api/forums/categories/{slug}/topics
func (h *ForumHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	topics, err := h.forumService.ListTopics(r.Context(), r.PathValue("slug"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "list topics")
		return
	}
	WriteCollection(w, http.StatusOK, topics, pageInfo(limit, offset, len(topics)))
}

// CreateTopic handles POST /api/forums/topics
func (h *ForumHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTopicRequest
	if !decodeBody(w, r, &req) {
		return
	}

	t, err := h.forumService.CreateTopic(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "create topic")
		return
	}
	WriteData(w, http.StatusCreated, t)
}

// GetTopic handles GET /api/forums/topics/{id}
func (h *ForumHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	t, err := h.forumService.GetTopic(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "get topic")
		return
	}
	WriteData(w, http.StatusOK, t)
}

// CreatePost handles POST /api/forums/topics/{id}/posts
func (h *ForumHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req model.PostBodyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.forumService.CreatePost(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "create post")
		return
	}
	WriteData(w, http.StatusCreated, p)
}

// EditPost handles PATCH /api/forums/posts/{id}
func (h *ForumHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	var req model.PostBodyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.forumService.EditPost(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "edit post")
		return
	}
	WriteData(w, http.StatusOK, p)
}

// DeletePost handles DELETE /api/forums/posts/{id}
func (h *ForumHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	p, err := h.forumService.DeletePost(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "delete post")
		return
	}
	WriteData(w, http.StatusOK, p)
}

// Pin handles POST /api/forums/topics/{id}/pin. An empty body toggles.
func (h *ForumHandler) Pin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFlag(w, r)
	if !ok {
		return
	}
	t, err := h.forumService.SetPinned(r.Context(), actorFrom(r), r.PathValue("id"), req.Value)
	if err != nil {
		writeServiceError(w, r, err, "pin topic")
		return
	}
	WriteData(w, http.StatusOK, t)
}

// Lock handles POST /api/forums/topics/{id}/lock. An empty body toggles.
func (h *ForumHandler) Lock(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFlag(w, r)
	if !ok {
		return
	}
	t, err := h.forumService.SetLocked(r.Context(), actorFrom(r), r.PathValue("id"), req.Value)
	if err != nil {
		writeServiceError(w, r, err, "lock topic")
		return
	}
	WriteData(w, http.StatusOK, t)
}

func decodeFlag(w http.ResponseWriter, r *http.Request) (model.TopicFlagRequest, bool) {
	var req model.TopicFlagRequest
	if err := DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return req, false
	}
	return req, true
}
