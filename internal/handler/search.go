package handler

import (
	"net/http"

	"github.com/forgo/haven/api/internal/service"
)

// SearchHandler handles cross-collection search
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search handles GET /api/search?q=&type=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.searchService.Search(r.Context(), q.Get("q"), q.Get("type"))
	if err != nil {
		writeServiceError(w, r, err, "search")
		return
	}
	WriteData(w, http.StatusOK, results)
}
