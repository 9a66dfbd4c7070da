package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"storefront/models"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	q := r.URL.Query()
	filter := models.UserFilter{
		Role:  models.Role(q.Get("role")),
		Query: q.Get("q"),
		Page:  page,
	}
	list, err := h.us.ListUsers(r.Context(), caller(r), filter)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserInput
	if err := decodeBody(r, &in); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	user, err := h.us.CreateUser(r.Context(), caller(r), in)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.us.GetUserById(r.Context(), caller(r), mux.Vars(r)["userId"])
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if err := decodeBody(r, &patch); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	user, err := h.us.UpdateUser(r.Context(), caller(r), mux.Vars(r)["userId"], patch)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.us.DeleteUser(r.Context(), caller(r), mux.Vars(r)["userId"]); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "user deleted successfully"})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.us.GetProfile(r.Context(), caller(r))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch models.ProfilePatch
	if err := decodeBody(r, &patch); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	user, err := h.us.UpdateProfile(r.Context(), caller(r), patch)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
