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

type ProductRepository interface {
	GetProductById(ctx context.Context, id string) (p models.Product, exists bool, err error)
	GetProductsByIds(ctx context.Context, ids []string) ([]models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) (prods []models.Product, totalCount int, err error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	UpdateRating(ctx context.Context, id string, rating float64, reviewCount int) error

	GetVariants(ctx context.Context, productIds []string) (map[string][]models.ProductVariant, error)
	GetVariantsByIds(ctx context.Context, ids []string) ([]models.ProductVariant, error)
	ReplaceVariants(ctx context.Context, productId string, variants []models.VariantInput) ([]models.ProductVariant, error)
}

type ProductRepo struct {
	db  *sql.DB
	log *logger.Logger
}

func NewProductRepository(conn *sql.DB, log *logger.Logger) (ProductRepository, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return &ProductRepo{
		db:  conn,
		log: log.With("repository", "product"),
	}, nil
}

const productColumns = "p.id, p.name, p.description, p.price, p.compare_price, p.sku, p.stock, p.images, " +
	"p.featured, p.is_active, p.category_id, p.rating, p.review_count, p.created_at, p.updated_at"

func scanProduct(row scanner) (p models.Product, err error) {
	err = row.Scan(&p.Id, &p.Name, &p.Description, &p.Price, &p.ComparePrice, &p.Sku, &p.Stock, &p.Images,
		&p.Featured, &p.IsActive, &p.CategoryId, &p.Rating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt)
	return
}

func (r *ProductRepo) GetProductById(ctx context.Context, id string) (p models.Product, exists bool, err error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+productColumns+" FROM products p WHERE p.id = $1", id)
	p, err = scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return
		}
		err = fail(r.log, "GetProductById", err)
		return
	}
	exists = true
	return
}

func (r *ProductRepo) GetProductsByIds(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var q query
	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT "+productColumns+" FROM products p WHERE p.id IN "+q.in(ids), q.args...)
	if err != nil {
		return nil, fail(r.log, "GetProductsByIds[1]", err)
	}
	defer rows.Close()

	var prods []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fail(r.log, "GetProductsByIds[2]", err)
		}
		prods = append(prods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(r.log, "GetProductsByIds[3]", err)
	}
	return prods, nil
}

// ListProducts returns active products only, newest first.
func (r *ProductRepo) ListProducts(ctx context.Context, filter models.ProductFilter) (prods []models.Product, totalCount int, err error) {
	var q query
	from := " FROM products p"
	q.and("p.is_active = " + q.arg(true))
	if filter.CategorySlug != "" {
		from += " JOIN categories c ON c.id = p.category_id"
		q.and("c.slug = " + q.arg(filter.CategorySlug))
	}
	if filter.Featured {
		q.and("p.featured = " + q.arg(true))
	}
	if filter.Query != "" {
		like := q.arg(likePattern(filter.Query))
		q.and("(LOWER(p.name) LIKE " + like + " OR LOWER(p.description) LIKE " + like + " OR LOWER(p.sku) LIKE " + like + ")")
	}

	db := conn(ctx, r.db)
	if err = db.QueryRowContext(ctx, "SELECT COUNT(*)"+from+q.clause(), q.args...).Scan(&totalCount); err != nil {
		err = fail(r.log, "ListProducts[1]", err)
		return
	}

	page := filter.Page
	stmt := "SELECT " + productColumns + from + q.clause() +
		" ORDER BY p.created_at DESC, p.id LIMIT " + q.arg(page.Limit) + " OFFSET " + q.arg(page.Offset())
	rows, e := db.QueryContext(ctx, stmt, q.args...)
	if e != nil {
		err = fail(r.log, "ListProducts[2]", e)
		return
	}
	defer rows.Close()
	for rows.Next() {
		p, e := scanProduct(rows)
		if e != nil {
			err = fail(r.log, "ListProducts[3]", e)
			return
		}
		prods = append(prods, p)
	}
	if e := rows.Err(); e != nil {
		err = fail(r.log, "ListProducts[4]", e)
	}
	return
}

func (r *ProductRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	p.Id = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	p.Rating, p.ReviewCount = 0, 0
	if p.Images == nil {
		p.Images = models.StringList{}
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO products (id, name, description, price, compare_price, sku, stock, images, featured, is_active,
			category_id, rating, review_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.Id, p.Name, p.Description, p.Price, p.ComparePrice, p.Sku, p.Stock, p.Images, p.Featured, p.IsActive,
		p.CategoryId, p.Rating, p.ReviewCount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.BadRequest("category does not exist")
		}
		return fail(r.log, "CreateProduct", err)
	}
	return nil
}

// UpdateProduct writes every column except rating and review_count.
func (r *ProductRepo) UpdateProduct(ctx context.Context, p models.Product) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE products SET name = $1, description = $2, price = $3, compare_price = $4, sku = $5, stock = $6,
			images = $7, featured = $8, is_active = $9, category_id = $10, updated_at = $11
		WHERE id = $12`,
		p.Name, p.Description, p.Price, p.ComparePrice, p.Sku, p.Stock,
		p.Images, p.Featured, p.IsActive, p.CategoryId, time.Now().UTC(), p.Id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.BadRequest("category does not exist")
		}
		return fail(r.log, "UpdateProduct", err)
	}
	return nil
}

// DeleteProduct removes the product together with its variants and reviews.
// A product that appears on an order cannot be deleted.
func (r *ProductRepo) DeleteProduct(ctx context.Context, id string) error {
	return withinTx(ctx, r.db, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		if _, err := db.ExecContext(ctx, "DELETE FROM product_variants WHERE product_id = $1", id); err != nil {
			return fail(r.log, "DeleteProduct[1]", err)
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM reviews WHERE product_id = $1", id); err != nil {
			return fail(r.log, "DeleteProduct[2]", err)
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
			if isForeignKeyViolation(err) {
				return models.Conflict("cannot delete a product that has been ordered")
			}
			return fail(r.log, "DeleteProduct[3]", err)
		}
		return nil
	})
}

func (r *ProductRepo) UpdateRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE products SET rating = $1, review_count = $2 WHERE id = $3", rating, reviewCount, id)
	if err != nil {
		return fail(r.log, "UpdateRating", err)
	}
	return nil
}

const variantColumns = "id, product_id, name, sku, price, stock, attributes"

func scanVariant(row scanner) (v models.ProductVariant, err error) {
	err = row.Scan(&v.Id, &v.ProductId, &v.Name, &v.Sku, &v.Price, &v.Stock, &v.Attributes)
	return
}

func (r *ProductRepo) queryVariants(ctx context.Context, op string, stmt string, args ...any) ([]models.ProductVariant, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fail(r.log, op, err)
	}
	defer rows.Close()
	var variants []models.ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fail(r.log, op, err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(r.log, op, err)
	}
	return variants, nil
}

func (r *ProductRepo) GetVariants(ctx context.Context, productIds []string) (map[string][]models.ProductVariant, error) {
	res := make(map[string][]models.ProductVariant, len(productIds))
	if len(productIds) == 0 {
		return res, nil
	}
	var q query
	variants, err := r.queryVariants(ctx, "GetVariants",
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id IN "+q.in(productIds)+" ORDER BY name, id", q.args...)
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		res[v.ProductId] = append(res[v.ProductId], v)
	}
	return res, nil
}

func (r *ProductRepo) GetVariantsByIds(ctx context.Context, ids []string) ([]models.ProductVariant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var q query
	return r.queryVariants(ctx, "GetVariantsByIds",
		"SELECT "+variantColumns+" FROM product_variants WHERE id IN "+q.in(ids), q.args...)
}

// ReplaceVariants deletes every variant of the product and inserts the given
// set in one transaction; it never merges.
func (r *ProductRepo) ReplaceVariants(ctx context.Context, productId string, variants []models.VariantInput) ([]models.ProductVariant, error) {
	created := make([]models.ProductVariant, 0, len(variants))
	err := withinTx(ctx, r.db, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		if _, err := db.ExecContext(ctx, "DELETE FROM product_variants WHERE product_id = $1", productId); err != nil {
			return fail(r.log, "ReplaceVariants[1]", err)
		}
		for _, in := range variants {
			v := models.ProductVariant{
				Id:         uuid.NewString(),
				ProductId:  productId,
				Name:       in.Name,
				Sku:        in.Sku,
				Price:      in.Price,
				Stock:      in.Stock,
				Attributes: in.Attributes,
			}
			if v.Attributes == nil {
				v.Attributes = models.Attributes{}
			}
			_, err := db.ExecContext(ctx,
				"INSERT INTO product_variants ("+variantColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
				v.Id, v.ProductId, v.Name, v.Sku, v.Price, v.Stock, v.Attributes)
			if err != nil {
				return fail(r.log, "ReplaceVariants[2]", err)
			}
			created = append(created, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
