package services_test

import (
	"testing"
	"time"

	"storefront/events"
	"storefront/identity"
	"storefront/metrics"
	"storefront/services"
	"storefront/storetest"
)

type fixture struct {
	store      *storetest.Store
	products   services.ProductService
	categories services.CategoryService
	orders     services.OrderService
	rating     services.RatingService
	reviews    services.ReviewService
	users      services.UserService
	search     services.SearchService
	tokens     *identity.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storetest.New(t)
	reg := metrics.NewRegistry()
	pub := events.NopPublisher{}

	f := &fixture{store: s, tokens: identity.NewTokenIssuer([]byte("test-secret"), time.Hour)}
	f.products = services.NewProductService(s.Products, s.Categories, s.Reviews, s.Users, s.Tx, s.Log)
	f.categories = services.NewCategoryService(s.Categories, s.Log)
	f.orders = services.NewOrderService(s.Orders, s.Products, s.Addresses, s.Users, s.Tx, pub, reg, s.Log)
	f.rating = services.NewRatingService(s.Reviews, s.Products, pub, reg, s.Log)
	f.reviews = services.NewReviewService(s.Reviews, s.Products, s.Users, &f.rating, s.Log)
	f.users = services.NewUserService(s.Users, s.Sessions, s.Orders, s.Reviews, s.Addresses, s.Tx, &f.orders, &f.rating, f.tokens, s.Log)
	f.search = services.NewSearchService(&f.products, &f.categories, &f.orders, s.Categories)
	return f
}
