package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/identity"
	"storefront/models"
	"storefront/services"
)

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := identity.New("root", models.RoleAdmin)
	cat := f.store.Category(t, "toys", nil)

	in := models.ProductInput{
		Name:       "Car",
		Price:      decimal.RequireFromString("12.50"),
		CategoryId: cat.Id,
		Variants: []models.VariantInput{
			{Name: "Red", Price: decimal.RequireFromString("12.50"), Attributes: models.Attributes{"color": "red"}},
		},
	}
	_, err := f.products.CreateProduct(ctx, identity.New("c1", models.RoleCustomer), in)
	assert.True(t, errors.Is(err, models.ErrForbidden))
	_, err = f.products.CreateProduct(ctx, identity.Anonymous(), in)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))

	p, err := f.products.CreateProduct(ctx, admin, in)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	require.Len(t, p.Variants, 1)

	got, err := f.products.GetProductById(ctx, identity.Anonymous(), p.Id)
	require.NoError(t, err)
	assert.Equal(t, "Car", got.Name)
	require.NotNil(t, got.Category)
	assert.Equal(t, "toys", got.Category.Slug)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, "red", got.Variants[0].Attributes["color"])

	bad := in
	bad.CategoryId = "missing"
	_, err = f.products.CreateProduct(ctx, admin, bad)
	assert.True(t, errors.Is(err, models.ErrBadRequest))

	bad = in
	bad.Price = decimal.RequireFromString("-1")
	_, err = f.products.CreateProduct(ctx, admin, bad)
	assert.True(t, errors.Is(err, models.ErrBadRequest))
}

func TestUpdateProduct_ReplacesVariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := identity.New("root", models.RoleAdmin)
	cat := f.store.Category(t, "toys", nil)
	p := f.store.Product(t, "Car", "10.00", cat.Id)
	_, err := f.store.Products.ReplaceVariants(ctx, p.Id, []models.VariantInput{{Name: "Old", Price: p.Price}})
	require.NoError(t, err)

	variants := []models.VariantInput{
		{Name: "Small", Price: decimal.RequireFromString("9.00")},
		{Name: "Large", Price: decimal.RequireFromString("11.00")},
	}
	updated, err := f.products.UpdateProductById(ctx, admin, p.Id, models.ProductPatch{Variants: &variants})
	require.NoError(t, err)
	names := []string{}
	for _, v := range updated.Variants {
		names = append(names, v.Name)
	}
	assert.ElementsMatch(t, []string{"Small", "Large"}, names)

	// an invalid variant list leaves the stored set alone
	invalid := []models.VariantInput{{Name: ""}}
	_, err = f.products.UpdateProductById(ctx, admin, p.Id, models.ProductPatch{Variants: &invalid})
	assert.True(t, errors.Is(err, models.ErrBadRequest))
	assert.Equal(t, 2, f.store.Count(t, "product_variants"))

	_, err = f.products.UpdateProductById(ctx, admin, "missing", models.ProductPatch{})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := identity.New("root", models.RoleAdmin)
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	p := f.store.Product(t, "Car", "10.00", cat.Id)
	f.store.Review(t, u.Id, p.Id, 4)

	err := f.products.DeleteProductById(ctx, identity.New(u.Id, u.Role), p.Id)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	require.NoError(t, f.products.DeleteProductById(ctx, admin, p.Id))
	assert.Equal(t, 0, f.store.Count(t, "products"))
	assert.Equal(t, 0, f.store.Count(t, "reviews"))

	err = f.products.DeleteProductById(ctx, admin, p.Id)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestListProducts_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.store.Category(t, "toys", nil)
	for i := 0; i < 25; i++ {
		f.store.Product(t, "Toy", "1.00", cat.Id)
	}

	list, err := f.products.ListProducts(ctx, identity.Anonymous(), models.ProductFilter{Page: models.Page{Page: 2, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, list.Items, 10)
	assert.Equal(t, 25, list.TotalCount)
	assert.Equal(t, 3, list.TotalPages)
	assert.Equal(t, 2, list.Page)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := identity.New("root", models.RoleAdmin)

	toys, err := f.categories.CreateCategory(ctx, admin, models.CategoryInput{Name: "Toys", Slug: "toys"})
	require.NoError(t, err)
	puzzles, err := f.categories.CreateCategory(ctx, admin, models.CategoryInput{Name: "Puzzles", Slug: "puzzles", ParentId: &toys.Id})
	require.NoError(t, err)

	_, err = f.categories.CreateCategory(ctx, admin, models.CategoryInput{Name: "Again", Slug: "toys"})
	assert.True(t, errors.Is(err, models.ErrConflict))
	missing := "missing"
	_, err = f.categories.CreateCategory(ctx, admin, models.CategoryInput{Name: "Orphan", Slug: "orphan", ParentId: &missing})
	assert.True(t, errors.Is(err, models.ErrBadRequest))
	_, err = f.categories.CreateCategory(ctx, identity.New("c1", models.RoleCustomer), models.CategoryInput{Name: "X", Slug: "x"})
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = f.categories.UpdateCategory(ctx, admin, toys.Id, models.CategoryPatch{
		ParentId: models.NullString{Set: true, Value: &toys.Id},
	})
	assert.True(t, errors.Is(err, models.ErrBadRequest))
	slug := "puzzles"
	_, err = f.categories.UpdateCategory(ctx, admin, toys.Id, models.CategoryPatch{Slug: &slug})
	assert.True(t, errors.Is(err, models.ErrConflict))

	got, err := f.categories.GetCategoryById(ctx, identity.Anonymous(), toys.Id)
	require.NoError(t, err)
	require.Len(t, got.Children, 1)
	assert.Equal(t, puzzles.Id, got.Children[0].Id)

	child, err := f.categories.GetCategoryById(ctx, identity.Anonymous(), puzzles.Id)
	require.NoError(t, err)
	require.NotNil(t, child.Parent)
	assert.Equal(t, toys.Id, child.Parent.Id)

	err = f.categories.DeleteCategory(ctx, admin, toys.Id)
	assert.True(t, errors.Is(err, models.ErrConflict))
	require.NoError(t, f.categories.DeleteCategory(ctx, admin, puzzles.Id))
	require.NoError(t, f.categories.DeleteCategory(ctx, admin, toys.Id))
	err = f.categories.DeleteCategory(ctx, admin, toys.Id)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDeleteCategory_NeedsAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.store.Category(t, "toys", nil)

	for _, tc := range []struct {
		name string
		who  identity.Identity
		want error
	}{
		{"customer", identity.New("c1", models.RoleCustomer), models.ErrForbidden},
		{"anonymous", identity.Anonymous(), models.ErrUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := f.categories.DeleteCategory(ctx, tc.who, cat.Id)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, 1, f.store.Count(t, "categories"))
		})
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "racing", nil)
	car := f.store.Product(t, "Racing car", "10.00", cat.Id)
	f.store.Product(t, "Doll", "5.00", cat.Id)
	who := identity.New(u.Id, u.Role)
	_, err := f.orders.PlaceOrder(ctx, who, models.OrderRequest{
		Items:           []models.OrderItemInput{{ProductId: car.Id, Quantity: 1}},
		ShippingAddress: shippingAddress(),
	})
	require.NoError(t, err)

	res, err := f.search.Search(ctx, identity.Anonymous(), services.SearchQuery{Text: "racing"})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, car.Id, res.Products[0].Id)
	require.Len(t, res.Categories, 1)
	assert.Empty(t, res.Orders)

	res, err = f.search.Search(ctx, who, services.SearchQuery{Text: "ann@", Type: services.SearchOrders})
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Len(t, res.Orders, 1)

	_, err = f.search.Search(ctx, who, services.SearchQuery{Text: "  "})
	assert.True(t, errors.Is(err, models.ErrBadRequest))
	_, err = f.search.Search(ctx, who, services.SearchQuery{Text: "car", Type: "users"})
	assert.True(t, errors.Is(err, models.ErrBadRequest))
}
