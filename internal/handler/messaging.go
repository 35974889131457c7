package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// MessagingHandler handles conversation and message endpoints
type MessagingHandler struct {
	messagingService *service.MessagingService
}

// NewMessagingHandler creates a new messaging handler
func NewMessagingHandler(messagingService *service.MessagingService) *MessagingHandler {
	return &MessagingHandler{messagingService: messagingService}
}

// Start handles POST /api/conversations
func (h *MessagingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RecipientID == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "recipient_id", Message: "recipient_id is required"}}))
		return
	}

	c, err := h.messagingService.Start(r.Context(), middleware.GetUserID(r.Context()), req.RecipientID)
	if err != nil {
		writeServiceError(w, r, err, "start conversation")
		return
	}
	WriteData(w, http.StatusOK, c)
}

// List handles GET /api/conversations
func (h *MessagingHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.messagingService.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list conversations")
		return
	}
	WriteCollection(w, http.StatusOK, conversations, nil)
}

// Messages handles GET /api/conversations/{id}/messages?before=&limit=
func (h *MessagingHandler) Messages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var before *time.Time
	if v := q.Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			WriteError(w, model.NewValidationError([]model.FieldError{{Field: "before", Message: "before must be an RFC 3339 timestamp"}}))
			return
		}
		before = &t
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	messages, err := h.messagingService.Messages(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), before, limit)
	if err != nil {
		writeServiceError(w, r, err, "list messages")
		return
	}
	WriteCollection(w, http.StatusOK, messages, nil)
}

// Send handles POST /api/conversations/{id}/messages
func (h *MessagingHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := h.messagingService.Send(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "send message")
		return
	}
	WriteData(w, http.StatusCreated, msg)
}

// MarkRead handles POST /api/conversations/{id}/read
func (h *MessagingHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.messagingService.MarkRead(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "mark read")
		return
	}
	WriteData(w, http.StatusOK, map[string]int{"marked": n})
}
