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

type CategoryRepository interface {
	GetCategoryById(ctx context.Context, id string) (cat models.Category, exists bool, err error)
	GetCategoryBySlug(ctx context.Context, slug string) (cat models.Category, exists bool, err error)
	CategoryExist(ctx context.Context, id string) (bool, error)
	ListCategories(ctx context.Context, filter models.CategoryFilter) (cats []models.Category, totalCount int, err error)
	SearchCategories(ctx context.Context, text string, limit int) ([]models.Category, error)
	GetCategoriesByIds(ctx context.Context, ids []string) (map[string]models.Category, error)
	GetSubCategories(ctx context.Context, parentIds []string) (map[string][]models.Category, error)
	CountProducts(ctx context.Context, ids []string) (map[string]int, error)
	CreateCategory(ctx context.Context, cat *models.Category) error
	UpdateCategory(ctx context.Context, cat models.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

type CategoryRepo struct {
	db  *sql.DB
	log *logger.Logger
}

func NewCategoryRepository(conn *sql.DB, log *logger.Logger) (CategoryRepository, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return &CategoryRepo{
		db:  conn,
		log: log.With("repository", "category"),
	}, nil
}

const categoryColumns = "id, name, slug, description, image, parent_id, created_at, updated_at"

func scanCategory(row scanner) (c models.Category, err error) {
	err = row.Scan(&c.Id, &c.Name, &c.Slug, &c.Description, &c.Image, &c.ParentId, &c.CreatedAt, &c.UpdatedAt)
	return
}

func (c *CategoryRepo) getOne(ctx context.Context, op, where string, arg any) (cat models.Category, exists bool, err error) {
	row := conn(ctx, c.db).QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE "+where, arg)
	cat, err = scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return
		}
		err = fail(c.log, op, err)
		return
	}
	exists = true
	return
}

func (c *CategoryRepo) GetCategoryById(ctx context.Context, id string) (models.Category, bool, error) {
	return c.getOne(ctx, "GetCategoryById", "id = $1", id)
}

func (c *CategoryRepo) GetCategoryBySlug(ctx context.Context, slug string) (models.Category, bool, error) {
	return c.getOne(ctx, "GetCategoryBySlug", "slug = $1", slug)
}

func (c *CategoryRepo) CategoryExist(ctx context.Context, id string) (bool, error) {
	var ex int
	err := conn(ctx, c.db).QueryRowContext(ctx, "SELECT 1 FROM categories WHERE id = $1", id).Scan(&ex)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fail(c.log, "CategoryExist", err)
}

func (c *CategoryRepo) queryCategories(ctx context.Context, op, stmt string, args ...any) ([]models.Category, error) {
	rows, err := conn(ctx, c.db).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fail(c.log, op, err)
	}
	defer rows.Close()
	var cats []models.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fail(c.log, op, err)
		}
		cats = append(cats, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(c.log, op, err)
	}
	return cats, nil
}

func (c *CategoryRepo) ListCategories(ctx context.Context, filter models.CategoryFilter) (cats []models.Category, totalCount int, err error) {
	var q query
	if filter.ParentId.Set {
		if filter.ParentId.Value == nil {
			q.and("parent_id IS NULL")
		} else {
			q.and("parent_id = " + q.arg(*filter.ParentId.Value))
		}
	}
	if err = conn(ctx, c.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM categories"+q.clause(), q.args...).Scan(&totalCount); err != nil {
		err = fail(c.log, "ListCategories", err)
		return
	}
	page := filter.Page
	cats, err = c.queryCategories(ctx, "ListCategories",
		"SELECT "+categoryColumns+" FROM categories"+q.clause()+
			" ORDER BY name ASC, id LIMIT "+q.arg(page.Limit)+" OFFSET "+q.arg(page.Offset()), q.args...)
	return
}

func (c *CategoryRepo) SearchCategories(ctx context.Context, text string, limit int) ([]models.Category, error) {
	var q query
	like := q.arg(likePattern(text))
	q.and("(LOWER(name) LIKE " + like + " OR LOWER(description) LIKE " + like + " OR LOWER(slug) LIKE " + like + ")")
	return c.queryCategories(ctx, "SearchCategories",
		"SELECT "+categoryColumns+" FROM categories"+q.clause()+" ORDER BY name ASC LIMIT "+q.arg(limit), q.args...)
}

func (c *CategoryRepo) GetCategoriesByIds(ctx context.Context, ids []string) (map[string]models.Category, error) {
	res := make(map[string]models.Category, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var q query
	cats, err := c.queryCategories(ctx, "GetCategoriesByIds",
		"SELECT "+categoryColumns+" FROM categories WHERE id IN "+q.in(ids), q.args...)
	if err != nil {
		return nil, err
	}
	for _, cat := range cats {
		res[cat.Id] = cat
	}
	return res, nil
}

// GetSubCategories groups the direct children of every given parent.
func (c *CategoryRepo) GetSubCategories(ctx context.Context, parentIds []string) (map[string][]models.Category, error) {
	res := make(map[string][]models.Category, len(parentIds))
	if len(parentIds) == 0 {
		return res, nil
	}
	var q query
	cats, err := c.queryCategories(ctx, "GetSubCategories",
		"SELECT "+categoryColumns+" FROM categories WHERE parent_id IN "+q.in(parentIds)+" ORDER BY name ASC", q.args...)
	if err != nil {
		return nil, err
	}
	for _, cat := range cats {
		res[*cat.ParentId] = append(res[*cat.ParentId], cat)
	}
	return res, nil
}

func (c *CategoryRepo) CountProducts(ctx context.Context, ids []string) (map[string]int, error) {
	res := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var q query
	rows, err := conn(ctx, c.db).QueryContext(ctx,
		"SELECT category_id, COUNT(*) FROM products WHERE category_id IN "+q.in(ids)+" GROUP BY category_id", q.args...)
	if err != nil {
		return nil, fail(c.log, "CountProducts[1]", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fail(c.log, "CountProducts[2]", err)
		}
		res[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fail(c.log, "CountProducts[3]", err)
	}
	return res, nil
}

func (c *CategoryRepo) CreateCategory(ctx context.Context, cat *models.Category) error {
	now := time.Now().UTC()
	cat.Id = uuid.NewString()
	cat.CreatedAt, cat.UpdatedAt = now, now
	_, err := conn(ctx, c.db).ExecContext(ctx,
		"INSERT INTO categories ("+categoryColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		cat.Id, cat.Name, cat.Slug, cat.Description, cat.Image, cat.ParentId, cat.CreatedAt, cat.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Conflict("category with this slug already exists")
		}
		return fail(c.log, "CreateCategory", err)
	}
	return nil
}

func (c *CategoryRepo) UpdateCategory(ctx context.Context, cat models.Category) error {
	_, err := conn(ctx, c.db).ExecContext(ctx,
		`UPDATE categories SET name = $1, slug = $2, description = $3, image = $4, parent_id = $5, updated_at = $6
		WHERE id = $7`,
		cat.Name, cat.Slug, cat.Description, cat.Image, cat.ParentId, time.Now().UTC(), cat.Id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Conflict("category with this slug already exists")
		}
		return fail(c.log, "UpdateCategory", err)
	}
	return nil
}

// DeleteCategory refuses categories that still have children or products;
// dependents are never removed along with it.
func (c *CategoryRepo) DeleteCategory(ctx context.Context, id string) error {
	return withinTx(ctx, c.db, func(ctx context.Context) error {
		db := conn(ctx, c.db)
		var children, products int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories WHERE parent_id = $1", id).Scan(&children); err != nil {
			return fail(c.log, "DeleteCategory[1]", err)
		}
		if children > 0 {
			return models.Conflict("cannot delete category with subcategories")
		}
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE category_id = $1", id).Scan(&products); err != nil {
			return fail(c.log, "DeleteCategory[2]", err)
		}
		if products > 0 {
			return models.Conflict("cannot delete category with products")
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id); err != nil {
			if isForeignKeyViolation(err) {
				return models.Conflict("category is still referenced")
			}
			return fail(c.log, "DeleteCategory[3]", err)
		}
		return nil
	})
}
