package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"storefront/logger"
	"storefront/models"
)

type ReviewRepository interface {
	GetReviewById(ctx context.Context, id string) (review models.Review, exists bool, err error)
	FindUserReview(ctx context.Context, userId, productId string) (review models.Review, exists bool, err error)
	ListReviews(ctx context.Context, filter models.ReviewFilter) (reviews []models.Review, totalCount int, err error)
	GetProductReviews(ctx context.Context, productId string) ([]models.Review, error)
	GetProductRatings(ctx context.Context, productId string) ([]int, error)
	CountReviewsByUser(ctx context.Context, userId string) (int, error)
	GetReviewedProductIds(ctx context.Context, userId string) ([]string, error)
	CreateReview(ctx context.Context, review *models.Review) error
	UpdateReview(ctx context.Context, review models.Review) error
	DeleteReview(ctx context.Context, id string) error
}

type ReviewRepo struct {
	db  *sql.DB
	log *logger.Logger
}

func NewReviewRepository(conn *sql.DB, log *logger.Logger) (ReviewRepository, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return &ReviewRepo{
		db:  conn,
		log: log.With("repository", "review"),
	}, nil
}

const reviewColumns = "id, user_id, product_id, rating, title, comment, created_at, updated_at"

func scanReview(row scanner) (r models.Review, err error) {
	err = row.Scan(&r.Id, &r.UserId, &r.ProductId, &r.Rating, &r.Title, &r.Comment, &r.CreatedAt, &r.UpdatedAt)
	return
}

func (r *ReviewRepo) getOne(ctx context.Context, op, where string, args ...any) (review models.Review, exists bool, err error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE "+where, args...)
	review, err = scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return
		}
		err = fail(r.log, op, err)
		return
	}
	exists = true
	return
}

func (r *ReviewRepo) GetReviewById(ctx context.Context, id string) (models.Review, bool, error) {
	return r.getOne(ctx, "GetReviewById", "id = $1", id)
}

func (r *ReviewRepo) FindUserReview(ctx context.Context, userId, productId string) (models.Review, bool, error) {
	return r.getOne(ctx, "FindUserReview", "user_id = $1 AND product_id = $2", userId, productId)
}

func (r *ReviewRepo) queryReviews(ctx context.Context, op, stmt string, args ...any) ([]models.Review, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fail(r.log, op, err)
	}
	defer rows.Close()
	var reviews []models.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, fail(r.log, op, err)
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(r.log, op, err)
	}
	return reviews, nil
}

func (r *ReviewRepo) ListReviews(ctx context.Context, filter models.ReviewFilter) (reviews []models.Review, totalCount int, err error) {
	var q query
	if filter.ProductId != "" {
		q.and("product_id = " + q.arg(filter.ProductId))
	}
	if filter.UserId != "" {
		q.and("user_id = " + q.arg(filter.UserId))
	}
	if filter.Rating != 0 {
		q.and("rating = " + q.arg(filter.Rating))
	}
	if err = conn(ctx, r.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews"+q.clause(), q.args...).Scan(&totalCount); err != nil {
		err = fail(r.log, "ListReviews", err)
		return
	}
	page := filter.Page
	reviews, err = r.queryReviews(ctx, "ListReviews",
		"SELECT "+reviewColumns+" FROM reviews"+q.clause()+
			" ORDER BY created_at DESC, id LIMIT "+q.arg(page.Limit)+" OFFSET "+q.arg(page.Offset()), q.args...)
	return
}

// GetProductReviews returns every review of the product, newest first.
func (r *ReviewRepo) GetProductReviews(ctx context.Context, productId string) ([]models.Review, error) {
	return r.queryReviews(ctx, "GetProductReviews",
		"SELECT "+reviewColumns+" FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id", productId)
}

func (r *ReviewRepo) GetProductRatings(ctx context.Context, productId string) ([]int, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT rating FROM reviews WHERE product_id = $1", productId)
	if err != nil {
		return nil, fail(r.log, "GetProductRatings[1]", err)
	}
	defer rows.Close()
	var ratings []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fail(r.log, "GetProductRatings[2]", err)
		}
		ratings = append(ratings, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(r.log, "GetProductRatings[3]", err)
	}
	return ratings, nil
}

func (r *ReviewRepo) CountReviewsByUser(ctx context.Context, userId string) (n int, err error) {
	err = conn(ctx, r.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE user_id = $1", userId).Scan(&n)
	if err != nil {
		err = fail(r.log, "CountReviewsByUser", err)
	}
	return
}

// GetReviewedProductIds returns the distinct products the user has reviewed.
func (r *ReviewRepo) GetReviewedProductIds(ctx context.Context, userId string) ([]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT DISTINCT product_id FROM reviews WHERE user_id = $1 ORDER BY product_id", userId)
	if err != nil {
		return nil, fail(r.log, "GetReviewedProductIds[1]", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fail(r.log, "GetReviewedProductIds[2]", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(r.log, "GetReviewedProductIds[3]", err)
	}
	return ids, nil
}

func (r *ReviewRepo) CreateReview(ctx context.Context, review *models.Review) error {
	now := time.Now().UTC()
	review.Id = uuid.NewString()
	review.CreatedAt, review.UpdatedAt = now, now
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO reviews ("+reviewColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		review.Id, review.UserId, review.ProductId, review.Rating, review.Title, review.Comment,
		review.CreatedAt, review.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Conflict("you have already reviewed this product")
		}
		if isForeignKeyViolation(err) {
			return models.NotFound("product not found")
		}
		return fail(r.log, "CreateReview", err)
	}
	return nil
}

func (r *ReviewRepo) UpdateReview(ctx context.Context, review models.Review) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE reviews SET rating = $1, title = $2, comment = $3, updated_at = $4 WHERE id = $5",
		review.Rating, review.Title, review.Comment, time.Now().UTC(), review.Id)
	if err != nil {
		return fail(r.log, "UpdateReview", err)
	}
	return nil
}

func (r *ReviewRepo) DeleteReview(ctx context.Context, id string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM reviews WHERE id = $1", id)
	if err != nil {
		return fail(r.log, "DeleteReview", err)
	}
	return nil
}
