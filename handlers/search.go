package handlers

import (
	"net/http"
	"strconv"

	"storefront/models"
	"storefront/services"
)

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := services.SearchQuery{
		Text: q.Get("q"),
		Type: q.Get("type"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteErrorResponse(w, models.BadRequest("limit must be a positive integer"))
			return
		}
		query.Limit = n
	}
	res, err := h.ss.Search(r.Context(), caller(r), query)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
