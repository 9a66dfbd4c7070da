package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"storefront/models"
)

func (h *Handler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	q := r.URL.Query()
	filter := models.OrderFilter{
		Status: models.OrderStatus(q.Get("status")),
		UserId: q.Get("userId"),
		Page:   page,
	}
	list, err := h.ors.SearchOrders(r.Context(), caller(r), filter)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := decodeBody(r, &req); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	order, err := h.ors.PlaceOrder(r.Context(), caller(r), req)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) GetOrderById(w http.ResponseWriter, r *http.Request) {
	order, err := h.ors.GetOrderById(r.Context(), caller(r), mux.Vars(r)["orderId"])
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var patch models.OrderPatch
	if err := decodeBody(r, &patch); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	order, err := h.ors.UpdateOrder(r.Context(), caller(r), mux.Vars(r)["orderId"], patch)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.ors.DeleteOrder(r.Context(), caller(r), mux.Vars(r)["orderId"]); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "order deleted successfully"})
}
