package services

import (
	"context"

	"storefront/events"
	"storefront/logger"
	"storefront/metrics"
	"storefront/repository"
)

// RatingService keeps Product.rating and Product.reviewCount in line with
// the product's reviews. Each run re-reads every rating; two concurrent
// runs for one product race and the last write wins.
type RatingService struct {
	rr      repository.ReviewRepository
	pr      repository.ProductRepository
	pub     events.Publisher
	metrics *metrics.Registry
	log     *logger.Logger
}

func NewRatingService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository, pub events.Publisher, reg *metrics.Registry, log *logger.Logger) RatingService {
	return RatingService{
		rr:      reviewRepo,
		pr:      productRepo,
		pub:     pub,
		metrics: reg,
		log:     log.With("service", "rating"),
	}
}

type ratingSummary struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}

func (rs *RatingService) Recompute(ctx context.Context, productId string) (rating float64, count int, err error) {
	ratings, err := rs.rr.GetProductRatings(ctx, productId)
	if err != nil {
		return
	}
	rating, count = mean(ratings), len(ratings)
	if err = rs.pr.UpdateRating(ctx, productId, rating, count); err != nil {
		return
	}
	rs.metrics.RatingRecompute.Inc()
	if e := rs.pub.Publish(ctx, events.ProductRatingUpdated, productId, ratingSummary{rating, count}); e != nil {
		rs.log.Warn("publish rating update", "productId", productId, "error", e)
	}
	return
}

func mean(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}
