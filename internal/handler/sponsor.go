package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/service"
)

// SponsorHandler handles sponsor tiers, applications and placements
type SponsorHandler struct {
	sponsorService *service.SponsorService
}

// NewSponsorHandler creates a new sponsor handler
func NewSponsorHandler(sponsorService *service.SponsorService) *SponsorHandler {
	return &SponsorHandler{sponsorService: sponsorService}
}

// Tiers handles GET /api/sponsors/tiers
func (h *SponsorHandler) Tiers(w http.ResponseWriter, r *http.Request) {
	WriteCollection(w, http.StatusOK, h.sponsorService.Tiers(), nil)
}

// Apply handles POST /api/sponsors
func (h *SponsorHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSponsorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.sponsorService.Apply(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err, "apply sponsor")
		return
	}
	WriteData(w, http.StatusCreated, resp)
}

// ListOwn handles GET /api/sponsors/mine
func (h *SponsorHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	sponsors, err := h.sponsorService.ListOwn(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list own sponsors")
		return
	}
	WriteCollection(w, http.StatusOK, sponsors, nil)
}

// Placements handles GET /api/sponsors/placements?slot=
func (h *SponsorHandler) Placements(w http.ResponseWriter, r *http.Request) {
	placements, err := h.sponsorService.Placements(r.Context(), r.URL.Query().Get("slot"))
	if err != nil {
		writeServiceError(w, r, err, "placements")
		return
	}
	WriteCollection(w, http.StatusOK, placements, nil)
}

// Impression handles POST /api/sponsors/{id}/impression
func (h *SponsorHandler) Impression(w http.ResponseWriter, r *http.Request) {
	if err := h.sponsorService.RecordImpression(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "record impression")
		return
	}
	WriteNoContent(w)
}

// Click handles POST /api/sponsors/{id}/click
func (h *SponsorHandler) Click(w http.ResponseWriter, r *http.Request) {
	if err := h.sponsorService.RecordClick(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "record click")
		return
	}
	WriteNoContent(w)
}

// List handles GET /api/admin/sponsors?status=
func (h *SponsorHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	sponsors, err := h.sponsorService.List(r.Context(), actorFrom(r), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "list sponsors")
		return
	}
	WriteCollection(w, http.StatusOK, sponsors, pageInfo(limit, offset, len(sponsors)))
}

// SetStatus handles POST /api/admin/sponsors/{id}/status
func (h *SponsorHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req model.SetSponsorStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := h.sponsorService.SetStatus(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err, "set sponsor status")
		return
	}
	WriteData(w, http.StatusOK, s)
}
