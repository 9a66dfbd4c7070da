package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"storefront/models"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	q := r.URL.Query()
	filter := models.ProductFilter{
		CategorySlug: q.Get("category"),
		Featured:     q.Get("featured") == "true",
		Query:        q.Get("q"),
		Page:         page,
	}
	list, err := h.ps.ListProducts(r.Context(), caller(r), filter)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.ps.GetProductById(r.Context(), caller(r), mux.Vars(r)["productId"])
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := decodeBody(r, &in); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	p, err := h.ps.CreateProduct(r.Context(), caller(r), in)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch models.ProductPatch
	if err := decodeBody(r, &patch); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	p, err := h.ps.UpdateProductById(r.Context(), caller(r), mux.Vars(r)["productId"], patch)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.ps.DeleteProductById(r.Context(), caller(r), mux.Vars(r)["productId"]); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "product deleted successfully"})
}
