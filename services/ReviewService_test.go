package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/identity"
	"storefront/models"
)

func TestReviews_RatingAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)

	var reviewIds []string
	for i, rating := range []int{5, 4, 3} {
		u := f.store.User(t, string(rune('a'+i))+"@example.com", models.RoleCustomer)
		r, err := f.reviews.CreateReview(ctx, identity.New(u.Id, u.Role), models.ReviewInput{ProductId: car.Id, Rating: rating})
		require.NoError(t, err)
		reviewIds = append(reviewIds, r.Id)
	}

	p, _, err := f.store.Products.GetProductById(ctx, car.Id)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, p.Rating, 1e-9)
	assert.Equal(t, 3, p.ReviewCount)

	admin := identity.New("root", models.RoleAdmin)
	require.NoError(t, f.reviews.DeleteReview(ctx, admin, reviewIds[0]))
	p, _, err = f.store.Products.GetProductById(ctx, car.Id)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, p.Rating, 1e-9)
	assert.Equal(t, 2, p.ReviewCount)
}

func TestReviews_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)
	who := identity.New(u.Id, u.Role)

	_, err := f.reviews.CreateReview(ctx, who, models.ReviewInput{ProductId: car.Id, Rating: 5})
	require.NoError(t, err)
	_, err = f.reviews.CreateReview(ctx, who, models.ReviewInput{ProductId: car.Id, Rating: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))

	p, _, err := f.store.Products.GetProductById(ctx, car.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReviewCount)
	assert.InDelta(t, 5.0, p.Rating, 1e-9)
}

func TestReviews_RatingRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.User(t, "ann@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)
	who := identity.New(u.Id, u.Role)

	for _, rating := range []int{0, 6} {
		_, err := f.reviews.CreateReview(ctx, who, models.ReviewInput{ProductId: car.Id, Rating: rating})
		assert.True(t, errors.Is(err, models.ErrBadRequest), "rating %d", rating)
	}
	assert.Equal(t, 0, f.store.Count(t, "reviews"))

	_, err := f.reviews.CreateReview(ctx, who, models.ReviewInput{ProductId: "missing", Rating: 3})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestReviews_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := f.store.User(t, "ann@example.com", models.RoleCustomer)
	bob := f.store.User(t, "bob@example.com", models.RoleCustomer)
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)

	r, err := f.reviews.CreateReview(ctx, identity.New(ann.Id, ann.Role), models.ReviewInput{ProductId: car.Id, Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, ann.Id, r.User.Id)

	five := 5
	_, err = f.reviews.UpdateReview(ctx, identity.New(bob.Id, bob.Role), r.Id, models.ReviewPatch{Rating: &five})
	assert.True(t, errors.Is(err, models.ErrForbidden))
	_, err = f.reviews.UpdateReview(ctx, identity.Anonymous(), r.Id, models.ReviewPatch{Rating: &five})
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
	err = f.reviews.DeleteReview(ctx, identity.New(bob.Id, bob.Role), r.Id)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	updated, err := f.reviews.UpdateReview(ctx, identity.New(ann.Id, ann.Role), r.Id, models.ReviewPatch{Rating: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)

	p, _, err := f.store.Products.GetProductById(ctx, car.Id)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, p.Rating, 1e-9)

	list, err := f.reviews.ListReviews(ctx, identity.Anonymous(), models.ReviewFilter{ProductId: car.Id, Page: models.DefaultPage()})
	require.NoError(t, err)
	assert.Equal(t, 1, list.TotalCount)
}

func TestRecompute_NoReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.store.Category(t, "toys", nil)
	car := f.store.Product(t, "Car", "10.00", cat.Id)
	require.NoError(t, f.store.Products.UpdateRating(ctx, car.Id, 3, 7))

	rating, count, err := f.rating.Recompute(ctx, car.Id)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rating)
	assert.Equal(t, 0, count)
}
