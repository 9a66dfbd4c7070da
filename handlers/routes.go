package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Register mounts the API under /api. Every route sees the resolved
// caller; authorization happens in the services.
func (h *Handler) Register(router *mux.Router) {
	router.Use(h.ErrorHandleMiddleware)
	router.Use(h.LoggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.IdentityMiddleware)

	signin := h.Signin
	if h.limiter != nil {
		signin = h.limiter.Limit(h.Signin)
	}
	api.HandleFunc("/auth/signin", signin).Methods(http.MethodPost)
	api.HandleFunc("/auth/signout", h.Signout).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.Refresh).Methods(http.MethodPost)

	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/{productId}", h.GetProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{productId}", h.UpdateProduct).Methods(http.MethodPut)
	api.HandleFunc("/products/{productId}", h.DeleteProduct).Methods(http.MethodDelete)

	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.CreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{categoryId}", h.GetCategory).Methods(http.MethodGet)
	api.HandleFunc("/categories/{categoryId}", h.UpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{categoryId}", h.DeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/orders", h.SearchOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{orderId}", h.GetOrderById).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderId}", h.UpdateOrder).Methods(http.MethodPut)
	api.HandleFunc("/orders/{orderId}", h.DeleteOrder).Methods(http.MethodDelete)

	api.HandleFunc("/reviews", h.ListReviews).Methods(http.MethodGet)
	api.HandleFunc("/reviews", h.CreateReview).Methods(http.MethodPost)
	api.HandleFunc("/reviews/{reviewId}", h.GetReview).Methods(http.MethodGet)
	api.HandleFunc("/reviews/{reviewId}", h.UpdateReview).Methods(http.MethodPut)
	api.HandleFunc("/reviews/{reviewId}", h.DeleteReview).Methods(http.MethodDelete)

	// profile must be registered ahead of {userId}
	api.HandleFunc("/users/profile", h.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/profile", h.UpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}", h.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}", h.UpdateUser).Methods(http.MethodPut)
	api.HandleFunc("/users/{userId}", h.DeleteUser).Methods(http.MethodDelete)

	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
}
