package handlers

import (
	"net/http"
	"time"

	"storefront/identity"
	"storefront/models"
)

func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionId string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     identity.SessionCookie,
		Value:    sessionId,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.Expires = time.Now().Add(ttl)
		c.MaxAge = int(ttl.Seconds())
	} else {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

func sessionFromCookie(r *http.Request) string {
	c, err := r.Cookie(identity.SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decodeBody(r, &creds); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	res, err := h.us.SignIn(r.Context(), creds)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.setSessionCookie(w, res.SessionId, h.sessionTTL)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	sessionId := sessionFromCookie(r)
	if sessionId == "" {
		WriteErrorResponse(w, models.Unauthorized("no session"))
		return
	}
	if err := h.us.RefreshSession(r.Context(), caller(r), sessionId); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.setSessionCookie(w, sessionId, h.sessionTTL)
	writeJSON(w, http.StatusOK, messageResponse{Message: "session refreshed"})
}

func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	if err := h.us.SignOut(r.Context(), sessionFromCookie(r)); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.setSessionCookie(w, "", 0)
	writeJSON(w, http.StatusOK, messageResponse{Message: "signed out"})
}
