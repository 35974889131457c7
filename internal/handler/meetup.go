package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// MeetupHandler handles meetup and RSVP endpoints
type MeetupHandler struct {
	meetupService *service.MeetupService
}

// NewMeetupHandler creates a new meetup handler
func NewMeetupHandler(meetupService *service.MeetupService) *MeetupHandler {
	return &MeetupHandler{meetupService: meetupService}
}

// Create handles POST /api/meetups
func (h *MeetupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMeetupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.meetupService.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		writeServiceError(w, r, err, "create meetup")
		return
	}
	WriteData(w, http.StatusCreated, m)
}

// List handles GET /api/meetups?format=&city=
func (h *MeetupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	f := model.MeetupFilters{Limit: limit, Offset: offset}

	q := r.URL.Query()
	if v := q.Get("format"); v != "" {
		format := model.MeetupFormat(v)
		if format != model.MeetupInPerson && format != model.MeetupVirtual {
			WriteError(w, model.NewValidationError([]model.FieldError{{Field: "format", Message: "format must be in_person or virtual"}}))
			return
		}
		f.Format = &format
	}
	if v := q.Get("city"); v != "" {
		f.City = &v
	}

	meetups, err := h.meetupService.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err, "list meetups")
		return
	}
	WriteCollection(w, http.StatusOK, meetups, pageInfo(limit, offset, len(meetups)))
}

// Get handles GET /api/meetups/{id}
func (h *MeetupHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.meetupService.Get(r.Context(), optionalActor(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get meetup")
		return
	}
	WriteData(w, http.StatusOK, detail)
}

// Update handles PATCH /api/meetups/{id}
func (h *MeetupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateMeetupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.meetupService.Update(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "update meetup")
		return
	}
	WriteData(w, http.StatusOK, m)
}

// Cancel handles POST /api/meetups/{id}/cancel
func (h *MeetupHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	m, err := h.meetupService.Cancel(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "cancel meetup")
		return
	}
	WriteData(w, http.StatusOK, m)
}

// Attendees handles GET /api/meetups/{id}/attendees
func (h *MeetupHandler) Attendees(w http.ResponseWriter, r *http.Request) {
	attendees, err := h.meetupService.Attendees(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "list attendees")
		return
	}
	WriteCollection(w, http.StatusOK, attendees, nil)
}

// RSVP handles POST /api/meetups/rsvp
func (h *MeetupHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	var req model.RSVPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.meetupService.RSVP(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "rsvp")
		return
	}
	WriteData(w, http.StatusOK, result)
}

// CancelRSVP handles DELETE /api/meetups/{id}/rsvp
func (h *MeetupHandler) CancelRSVP(w http.ResponseWriter, r *http.Request) {
	result, err := h.meetupService.CancelRSVP(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "cancel rsvp")
		return
	}
	WriteData(w, http.StatusOK, result)
}
