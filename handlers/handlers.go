package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storefront/identity"
	"storefront/logger"
	"storefront/models"
	"storefront/services"
)

type Handler struct {
	us       services.UserService
	ps       services.ProductService
	cas      services.CategoryService
	ors      services.OrderService
	rs       services.ReviewService
	ss       services.SearchService
	resolver *identity.Resolver
	limiter  *RateLimiter
	log      *logger.Logger

	sessionTTL   time.Duration
	secureCookie bool
}

type HandlerParams struct {
	UsrService    services.UserService
	PrdService    services.ProductService
	CatsService   services.CategoryService
	OrdService    services.OrderService
	RevService    services.ReviewService
	SearchService services.SearchService
	Resolver      *identity.Resolver
	Limiter       *RateLimiter
	Logger        *logger.Logger
	SessionTTL    time.Duration
	SecureCookie  bool
}

func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		us:           params.UsrService,
		ps:           params.PrdService,
		cas:          params.CatsService,
		ors:          params.OrdService,
		rs:           params.RevService,
		ss:           params.SearchService,
		resolver:     params.Resolver,
		limiter:      params.Limiter,
		log:          params.Logger.With("component", "http"),
		sessionTTL:   params.SessionTTL,
		secureCookie: params.SecureCookie,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse maps an error kind to its status code. Server errors
// never leak their detail; it has been logged where it happened.
func WriteErrorResponse(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	}
	msg := "internal server error"
	if status != http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.BadRequest("invalid request body")
	}
	return nil
}

func pageFromQuery(r *http.Request) (models.Page, error) {
	q := r.URL.Query()
	return models.ParsePage(q.Get("page"), q.Get("limit"))
}

func caller(r *http.Request) identity.Identity {
	return identity.FromContext(r.Context())
}
