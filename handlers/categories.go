package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"storefront/models"
)

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	filter := models.CategoryFilter{Page: page}
	if q := r.URL.Query(); q.Has("parentId") {
		filter.ParentId.Set = true
		// parentId=null selects the roots
		if v := q.Get("parentId"); v != "null" && v != "" {
			filter.ParentId.Value = &v
		}
	}
	list, err := h.cas.ListCategories(r.Context(), caller(r), filter)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.cas.GetCategoryById(r.Context(), caller(r), mux.Vars(r)["categoryId"])
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if err := decodeBody(r, &in); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	cat, err := h.cas.CreateCategory(r.Context(), caller(r), in)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var patch models.CategoryPatch
	if err := decodeBody(r, &patch); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	cat, err := h.cas.UpdateCategory(r.Context(), caller(r), mux.Vars(r)["categoryId"], patch)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.cas.DeleteCategory(r.Context(), caller(r), mux.Vars(r)["categoryId"]); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "category deleted successfully"})
}
