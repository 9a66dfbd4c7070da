package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/events"
	"storefront/identity"
	"storefront/metrics"
	"storefront/models"
	"storefront/repository"
	"storefront/services"
)

func shippingAddress() *models.AddressInput {
	return &models.AddressInput{
		Name:         "Ann Buyer",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		PostalCode:   "62701",
		Country:      "US",
	}
}

func TestPlaceOrder_PricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)
	ball := f.store.Product(t, "Ball", "2.50", cat.Id)

	who := identity.New(u.Id, u.Role)
	order, err := f.orders.PlaceOrder(ctx, who, models.OrderRequest{
		Items: []models.OrderItemInput{
			{ProductId: car.Id, Quantity: 2},
			{ProductId: ball.Id, Quantity: 2},
		},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("25.00").Equal(order.Total), "total %s", order.Total)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, u.Id, order.UserId)
	require.Len(t, order.Items, 2)
	for _, it := range order.Items {
		switch it.ProductId {
		case car.Id:
			assert.True(t, car.Price.Equal(it.Price))
		case ball.Id:
			assert.True(t, ball.Price.Equal(it.Price))
		}
	}
	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, u.Id, order.ShippingAddress.UserId)

	assert.Equal(t, 1, f.store.Count(t, "orders"))
	assert.Equal(t, 2, f.store.Count(t, "order_items"))
	assert.Equal(t, 1, f.store.Count(t, "addresses"))
}

func TestPlaceOrder_SnapshotSurvivesPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	admin := identity.New("root", models.RoleAdmin)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)

	who := identity.New(u.Id, u.Role)
	placed, err := f.orders.PlaceOrder(ctx, who, models.OrderRequest{
		Items:           []models.OrderItemInput{{ProductId: car.Id, Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("99.00")
	_, err = f.products.UpdateProductById(ctx, admin, car.Id, models.ProductPatch{Price: &newPrice})
	require.NoError(t, err)

	got, err := f.orders.GetOrderById(ctx, who, placed.Id)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(got.Items[0].Price))
	assert.True(t, decimal.RequireFromString("10.00").Equal(got.Total))
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)
	who := identity.New(u.Id, u.Role)

	tests := []struct {
		name string
		req  models.OrderRequest
		want error
	}{
		{"no items", models.OrderRequest{ShippingAddress: shippingAddress()}, models.ErrBadRequest},
		{"no address", models.OrderRequest{Items: []models.OrderItemInput{{ProductId: car.Id, Quantity: 1}}}, models.ErrBadRequest},
		{"zero quantity", models.OrderRequest{
			Items:           []models.OrderItemInput{{ProductId: car.Id, Quantity: 0}},
			ShippingAddress: shippingAddress(),
		}, models.ErrBadRequest},
		{"unknown product", models.OrderRequest{
			Items: []models.OrderItemInput{
				{ProductId: car.Id, Quantity: 1},
				{ProductId: "missing", Quantity: 1},
			},
			ShippingAddress: shippingAddress(),
		}, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.PlaceOrder(ctx, who, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	assert.Equal(t, 0, f.store.Count(t, "orders"))
	assert.Equal(t, 0, f.store.Count(t, "order_items"))
	assert.Equal(t, 0, f.store.Count(t, "addresses"))
}

func TestPlaceOrder_Anonymous(t *testing.T) {
	f := newFixture(t)
	_, err := f.orders.PlaceOrder(context.Background(), identity.Anonymous(), models.OrderRequest{})
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestPlaceOrder_ForeignVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)
	ball := f.store.Product(t, "Ball", "2.00", cat.Id)
	vs, err := f.store.Products.ReplaceVariants(ctx, ball.Id, []models.VariantInput{{Name: "Red", Price: ball.Price}})
	require.NoError(t, err)

	_, err = f.orders.PlaceOrder(ctx, identity.New(u.Id, u.Role), models.OrderRequest{
		Items:           []models.OrderItemInput{{ProductId: car.Id, Quantity: 1, VariantId: &vs[0].Id}},
		ShippingAddress: shippingAddress(),
	})
	assert.True(t, errors.Is(err, models.ErrBadRequest))
	assert.Equal(t, 0, f.store.Count(t, "orders"))
}

type failingItems struct {
	repository.OrderRepository
}

func (failingItems) SetOrderItems(context.Context, string, []models.OrderItem) ([]models.OrderItem, error) {
	return nil, models.ErrServerError
}

func TestPlaceOrder_RollsBackOnItemFailure(t *testing.T) {
	f := newFixture(t)
	s := f.store
	ctx := context.Background()
	u := s.User(t, "ann@example.com", models.RoleCustomer)
	cat := s.Category(t, "toys", nil)
	car := s.Product(t, "Car", "10.00", cat.Id)

	orders := services.NewOrderService(failingItems{s.Orders}, s.Products, s.Addresses, s.Users, s.Tx,
		events.NopPublisher{}, metrics.NewRegistry(), s.Log)
	_, err := orders.PlaceOrder(ctx, identity.New(u.Id, u.Role), models.OrderRequest{
		Items:           []models.OrderItemInput{{ProductId: car.Id, Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	require.Error(t, err)

	assert.Equal(t, 0, s.Count(t, "orders"))
	assert.Equal(t, 0, s.Count(t, "addresses"))
}

func TestOrders_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := f.store.User(t, "ann@example.com", models.RoleCustomer)
	bob := f.store.User(t, "bob@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)

	annId := identity.New(ann.Id, ann.Role)
	bobId := identity.New(bob.Id, bob.Role)
	admin := identity.New("root", models.RoleAdmin)
	req := models.OrderRequest{
		Items:           []models.OrderItemInput{{ProductId: car.Id, Quantity: 1}},
		ShippingAddress: shippingAddress(),
	}
	annOrder, err := f.orders.PlaceOrder(ctx, annId, req)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(ctx, bobId, req)
	require.NoError(t, err)

	_, err = f.orders.GetOrderById(ctx, bobId, annOrder.Id)
	assert.True(t, errors.Is(err, models.ErrForbidden))
	_, err = f.orders.GetOrderById(ctx, identity.Anonymous(), annOrder.Id)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
	_, err = f.orders.GetOrderById(ctx, admin, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	own, err := f.orders.SearchOrders(ctx, annId, models.OrderFilter{Page: models.DefaultPage()})
	require.NoError(t, err)
	assert.Equal(t, 1, own.Meta.TotalCount)

	// a customer asking for someone else's orders still only sees their own
	own, err = f.orders.SearchOrders(ctx, annId, models.OrderFilter{UserId: bob.Id, Page: models.DefaultPage()})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, ann.Id, own.Items[0].UserId)

	all, err := f.orders.SearchOrders(ctx, admin, models.OrderFilter{Page: models.DefaultPage()})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Meta.TotalCount)

	status := models.OrderShipped
	tracking := "1Z999"
	_, err = f.orders.UpdateOrder(ctx, annId, annOrder.Id, models.OrderPatch{Status: &status})
	assert.True(t, errors.Is(err, models.ErrForbidden))
	updated, err := f.orders.UpdateOrder(ctx, admin, annOrder.Id, models.OrderPatch{Status: &status, TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, updated.Status)
	require.NotNil(t, updated.TrackingNumber)
	assert.Equal(t, tracking, *updated.TrackingNumber)

	bad := models.OrderStatus("LOST")
	_, err = f.orders.UpdateOrder(ctx, admin, annOrder.Id, models.OrderPatch{Status: &bad})
	assert.True(t, errors.Is(err, models.ErrBadRequest))
}

func TestSearchOrders_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "1.00", cat.Id)
	who := identity.New(u.Id, u.Role)
	for i := 0; i < 25; i++ {
		_, err := f.orders.PlaceOrder(ctx, who, models.OrderRequest{
			Items:           []models.OrderItemInput{{ProductId: car.Id, Quantity: i + 1}},
			ShippingAddress: shippingAddress(),
		})
		require.NoError(t, err, fmt.Sprintf("order %d", i))
	}

	list, err := f.orders.SearchOrders(ctx, who, models.OrderFilter{Page: models.Page{Page: 2, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, list.Items, 10)
	assert.Equal(t, 25, list.Meta.TotalCount)
	assert.Equal(t, 3, list.Meta.TotalPages)
	assert.Equal(t, 2, list.Meta.Page)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "1.00", cat.Id)
	who := identity.New(u.Id, u.Role)
	order, err := f.orders.PlaceOrder(ctx, who, models.OrderRequest{
		Items:           []models.OrderItemInput{{ProductId: car.Id, Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	err = f.orders.DeleteOrder(ctx, who, order.Id)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	require.NoError(t, f.orders.DeleteOrder(ctx, identity.New("root", models.RoleAdmin), order.Id))
	assert.Equal(t, 0, f.store.Count(t, "orders"))
	assert.Equal(t, 0, f.store.Count(t, "order_items"))
}
