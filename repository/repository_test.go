package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
	"storefront/storetest"
)

func TestCategory_SlugIsUnique(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	s.Category(t, "toys", nil)

	dup := models.Category{Name: "Other toys", Slug: "toys"}
	err := s.Categories.CreateCategory(ctx, &dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))
	assert.Equal(t, 1, s.Count(t, "categories"))
}

func TestCategory_DeleteGuard(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	parent := s.Category(t, "toys", nil)
	child := s.Category(t, "puzzles", &parent.Id)
	s.Product(t, "Cube", "9.99", child.Id)

	err := s.Categories.DeleteCategory(ctx, parent.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))
	assert.Contains(t, err.Error(), "subcategories")

	err = s.Categories.DeleteCategory(ctx, child.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))
	assert.Contains(t, err.Error(), "products")

	assert.Equal(t, 2, s.Count(t, "categories"))

	empty := s.Category(t, "empty", nil)
	require.NoError(t, s.Categories.DeleteCategory(ctx, empty.Id))
	_, exists, err := s.Categories.GetCategoryById(ctx, empty.Id)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCategory_Children(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	parent := s.Category(t, "toys", nil)
	s.Category(t, "puzzles", &parent.Id)
	s.Category(t, "blocks", &parent.Id)

	children, err := s.Categories.GetSubCategories(ctx, []string{parent.Id})
	require.NoError(t, err)
	require.Len(t, children[parent.Id], 2)
	assert.Equal(t, "blocks", children[parent.Id][0].Slug)

	roots, total, err := s.Categories.ListCategories(ctx, models.CategoryFilter{
		ParentId: models.NullString{Set: true},
		Page:     models.DefaultPage(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, roots, 1)
	assert.Equal(t, parent.Id, roots[0].Id)
}

func TestProduct_ReplaceVariants(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	cat := s.Category(t, "toys", nil)
	p := s.Product(t, "Car", "20.00", cat.Id)

	_, err := s.Products.ReplaceVariants(ctx, p.Id, []models.VariantInput{
		{Name: "Red", Price: decimal.RequireFromString("20.00"), Attributes: models.Attributes{"color": "red"}},
		{Name: "Blue", Price: decimal.RequireFromString("21.00"), Attributes: models.Attributes{"color": "blue"}},
	})
	require.NoError(t, err)

	// second variant cannot be encoded, so the whole replacement must roll back
	_, err = s.Products.ReplaceVariants(ctx, p.Id, []models.VariantInput{
		{Name: "Green", Price: decimal.RequireFromString("19.00")},
		{Name: "Broken", Price: decimal.RequireFromString("19.00"), Attributes: models.Attributes{"bad": make(chan int)}},
	})
	require.Error(t, err)

	got, err := s.Products.GetVariants(ctx, []string{p.Id})
	require.NoError(t, err)
	names := []string{}
	for _, v := range got[p.Id] {
		names = append(names, v.Name)
	}
	assert.ElementsMatch(t, []string{"Red", "Blue"}, names)

	_, err = s.Products.ReplaceVariants(ctx, p.Id, nil)
	require.NoError(t, err)
	got, err = s.Products.GetVariants(ctx, []string{p.Id})
	require.NoError(t, err)
	assert.Empty(t, got[p.Id])
}

func TestProduct_OuterTransactionRollsBackVariants(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	cat := s.Category(t, "toys", nil)
	p := s.Product(t, "Car", "20.00", cat.Id)

	boom := errors.New("boom")
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.Products.ReplaceVariants(ctx, p.Id, []models.VariantInput{
			{Name: "Red", Price: decimal.RequireFromString("20.00")},
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Count(t, "product_variants"))
}

func TestProduct_ListPagination(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	cat := s.Category(t, "toys", nil)
	for i := 0; i < 25; i++ {
		s.Product(t, fmt.Sprintf("Toy %02d", i), "1.00", cat.Id)
	}

	prods, total, err := s.Products.ListProducts(ctx, models.ProductFilter{Page: models.Page{Page: 2, Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, prods, 10)

	prods, _, err = s.Products.ListProducts(ctx, models.ProductFilter{Page: models.Page{Page: 3, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, prods, 5)

	prods, total, err = s.Products.ListProducts(ctx, models.ProductFilter{CategorySlug: "toys", Query: "TOY 07", Page: models.DefaultPage()})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, prods, 1)
	assert.Equal(t, "Toy 07", prods[0].Name)
}

func TestProduct_UpdateRating(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	cat := s.Category(t, "toys", nil)
	p := s.Product(t, "Car", "20.00", cat.Id)

	require.NoError(t, s.Products.UpdateRating(ctx, p.Id, 4.5, 2))
	p.Name = "Racing car"
	require.NoError(t, s.Products.UpdateProduct(ctx, p))

	got, exists, err := s.Products.GetProductById(ctx, p.Id)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, "Racing car", got.Name)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 2, got.ReviewCount)
}

func TestUser_EmailIsUnique(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	s.User(t, "ann@example.com", models.RoleCustomer)

	dup := models.User{Name: "Ann", Email: "ann@example.com"}
	err := s.Users.AddNewUser(ctx, &dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))

	u, exists, err := s.Users.GetUserByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, models.RoleCustomer, u.Role)
}

func TestUser_Password(t *testing.T) {
	s := storetest.New(t)
	hashed, err := s.Users.EncryptPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, s.Users.VerifyPassword(hashed, "hunter22"))
	assert.False(t, s.Users.VerifyPassword(hashed, "hunter23"))
}

func TestReview_OnePerUserAndProduct(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := s.User(t, "ann@example.com", models.RoleCustomer)
	cat := s.Category(t, "toys", nil)
	p := s.Product(t, "Car", "20.00", cat.Id)
	s.Review(t, u.Id, p.Id, 4)

	dup := models.Review{UserId: u.Id, ProductId: p.Id, Rating: 5}
	err := s.Reviews.CreateReview(ctx, &dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))

	ratings, err := s.Reviews.GetProductRatings(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, ratings)
}

func TestOrder_DeleteRemovesItems(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := s.User(t, "ann@example.com", models.RoleCustomer)
	cat := s.Category(t, "toys", nil)
	p := s.Product(t, "Car", "20.00", cat.Id)

	addr := models.Address{UserId: u.Id, Name: "Ann", AddressLine1: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US"}
	require.NoError(t, s.Addresses.CreateAddress(ctx, &addr))
	order := models.Order{UserId: u.Id, Status: models.OrderPending, Total: decimal.RequireFromString("40.00"), ShippingAddressId: addr.Id}
	require.NoError(t, s.Orders.CreateOrder(ctx, &order))
	_, err := s.Orders.SetOrderItems(ctx, order.Id, []models.OrderItem{
		{ProductId: p.Id, Quantity: 2, Price: decimal.RequireFromString("20.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count(t, "order_items"))

	require.NoError(t, s.Orders.DeleteOrder(ctx, order.Id))
	assert.Equal(t, 0, s.Count(t, "order_items"))
	assert.Equal(t, 0, s.Count(t, "orders"))
}
