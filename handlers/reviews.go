package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"storefront/models"
)

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	q := r.URL.Query()
	filter := models.ReviewFilter{
		ProductId: q.Get("productId"),
		UserId:    q.Get("userId"),
		Page:      page,
	}
	if v := q.Get("rating"); v != "" {
		if filter.Rating, err = strconv.Atoi(v); err != nil {
			WriteErrorResponse(w, models.BadRequest("rating must be an integer"))
			return
		}
	}
	list, err := h.rs.ListReviews(r.Context(), caller(r), filter)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.rs.GetReviewById(r.Context(), caller(r), mux.Vars(r)["reviewId"])
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if err := decodeBody(r, &in); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	review, err := h.rs.CreateReview(r.Context(), caller(r), in)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var patch models.ReviewPatch
	if err := decodeBody(r, &patch); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	review, err := h.rs.UpdateReview(r.Context(), caller(r), mux.Vars(r)["reviewId"], patch)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.rs.DeleteReview(r.Context(), caller(r), mux.Vars(r)["reviewId"]); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "review deleted successfully"})
}
