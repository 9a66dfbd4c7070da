package services

import (
	"context"

	"storefront/entities"
	"storefront/identity"
	"storefront/logger"
	"storefront/models"
	"storefront/policy"
	"storefront/repository"
)

type ReviewService struct {
	rr     repository.ReviewRepository
	pr     repository.ProductRepository
	ur     repository.UserRepository
	rating *RatingService
	log    *logger.Logger
}

func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository, userRepo repository.UserRepository, rating *RatingService, log *logger.Logger) ReviewService {
	return ReviewService{
		rr:     reviewRepo,
		pr:     productRepo,
		ur:     userRepo,
		rating: rating,
		log:    log.With("service", "review"),
	}
}

func validRating(r int) error {
	if r < 1 || r > 5 {
		return models.BadRequest("rating must be between 1 and 5")
	}
	return nil
}

func (rs *ReviewService) withAuthors(ctx context.Context, reviews []models.Review) ([]entities.Review, error) {
	userIds := make([]string, 0, len(reviews))
	prodIds := make([]string, 0, len(reviews))
	for _, r := range reviews {
		userIds = append(userIds, r.UserId)
		prodIds = append(prodIds, r.ProductId)
	}
	users, err := rs.ur.GetUsersByIds(ctx, distinct(userIds))
	if err != nil {
		return nil, err
	}
	prods, err := rs.pr.GetProductsByIds(ctx, distinct(prodIds))
	if err != nil {
		return nil, err
	}
	prodMap := make(map[string]models.Product, len(prods))
	for _, p := range prods {
		prodMap[p.Id] = p
	}
	out := make([]entities.Review, 0, len(reviews))
	for _, r := range reviews {
		ent := entities.Review{Review: r, User: userSummary(users[r.UserId], false)}
		if p, ok := prodMap[r.ProductId]; ok {
			s := productSummary(p)
			ent.Product = &s
		}
		out = append(out, ent)
	}
	return out, nil
}

func (rs *ReviewService) ListReviews(ctx context.Context, who identity.Identity, filter models.ReviewFilter) (list entities.List[entities.Review], err error) {
	if err = policy.Check(who, policy.ReadPublicCatalog, ""); err != nil {
		return
	}
	if filter.Rating != 0 {
		if err = validRating(filter.Rating); err != nil {
			return
		}
	}
	reviews, total, err := rs.rr.ListReviews(ctx, filter)
	if err != nil {
		return
	}
	items, err := rs.withAuthors(ctx, reviews)
	if err != nil {
		return
	}
	list = entities.NewList(items, total, filter.Page)
	return
}

func (rs *ReviewService) loadReview(ctx context.Context, reviewId string) (models.Review, error) {
	r, exists, err := rs.rr.GetReviewById(ctx, reviewId)
	if err != nil {
		return r, err
	}
	if !exists {
		return r, models.NotFound("review not found")
	}
	return r, nil
}

func (rs *ReviewService) getReview(ctx context.Context, reviewId string) (entities.Review, error) {
	r, err := rs.loadReview(ctx, reviewId)
	if err != nil {
		return entities.Review{}, err
	}
	ents, err := rs.withAuthors(ctx, []models.Review{r})
	if err != nil {
		return entities.Review{}, err
	}
	return ents[0], nil
}

func (rs *ReviewService) GetReviewById(ctx context.Context, who identity.Identity, reviewId string) (entities.Review, error) {
	if err := policy.Check(who, policy.ReadPublicCatalog, ""); err != nil {
		return entities.Review{}, err
	}
	return rs.getReview(ctx, reviewId)
}

// CreateReview stores the caller's review and recomputes the product
// rating. A second review of the same product by the same user is a
// conflict.
func (rs *ReviewService) CreateReview(ctx context.Context, who identity.Identity, in models.ReviewInput) (rEnt entities.Review, err error) {
	if err = policy.Check(who, policy.WriteOwnOrSelf, who.ID); err != nil {
		return
	}
	if in.ProductId == "" {
		err = models.BadRequest("productId is required")
		return
	}
	if err = validRating(in.Rating); err != nil {
		return
	}
	_, exists, err := rs.pr.GetProductById(ctx, in.ProductId)
	if err != nil {
		return
	}
	if !exists {
		err = models.NotFound("product not found")
		return
	}
	_, exists, err = rs.rr.FindUserReview(ctx, who.ID, in.ProductId)
	if err != nil {
		return
	}
	if exists {
		err = models.Conflict("you have already reviewed this product")
		return
	}

	review := models.Review{
		UserId:    who.ID,
		ProductId: in.ProductId,
		Rating:    in.Rating,
		Title:     in.Title,
		Comment:   in.Comment,
	}
	if err = rs.rr.CreateReview(ctx, &review); err != nil {
		return
	}
	if _, _, err = rs.rating.Recompute(ctx, review.ProductId); err != nil {
		return
	}
	return rs.getReview(ctx, review.Id)
}

func (rs *ReviewService) UpdateReview(ctx context.Context, who identity.Identity, reviewId string, patch models.ReviewPatch) (rEnt entities.Review, err error) {
	if err = policy.Authenticated(who); err != nil {
		return
	}
	review, err := rs.loadReview(ctx, reviewId)
	if err != nil {
		return
	}
	if err = policy.Check(who, policy.WriteOwnOrSelf, review.UserId); err != nil {
		return
	}
	if patch.Rating != nil {
		if err = validRating(*patch.Rating); err != nil {
			return
		}
		review.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		review.Comment = *patch.Comment
	}
	if err = rs.rr.UpdateReview(ctx, review); err != nil {
		return
	}
	if _, _, err = rs.rating.Recompute(ctx, review.ProductId); err != nil {
		return
	}
	return rs.getReview(ctx, reviewId)
}

// DeleteReview removes the review and recomputes the product rating so the
// count never includes deleted reviews.
func (rs *ReviewService) DeleteReview(ctx context.Context, who identity.Identity, reviewId string) (err error) {
	if err = policy.Authenticated(who); err != nil {
		return
	}
	review, err := rs.loadReview(ctx, reviewId)
	if err != nil {
		return
	}
	if err = policy.Check(who, policy.WriteOwnOrSelf, review.UserId); err != nil {
		return
	}
	if err = rs.rr.DeleteReview(ctx, reviewId); err != nil {
		return
	}
	_, _, err = rs.rating.Recompute(ctx, review.ProductId)
	return
}
