package services

import (
	"context"
	"strings"

	"storefront/entities"
	"storefront/identity"
	"storefront/logger"
	"storefront/models"
	"storefront/policy"
	"storefront/repository"
)

type CategoryService struct {
	cr  repository.CategoryRepository
	log *logger.Logger
}

func NewCategoryService(catRepo repository.CategoryRepository, log *logger.Logger) CategoryService {
	return CategoryService{
		cr:  catRepo,
		log: log.With("service", "category"),
	}
}

// withCounts attaches children and product counts to every category.
func (cas *CategoryService) withCounts(ctx context.Context, cats []models.Category) ([]entities.Category, error) {
	ids := make([]string, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.Id)
	}
	children, err := cas.cr.GetSubCategories(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := cas.cr.CountProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entities.Category, 0, len(cats))
	for _, c := range cats {
		ent := entities.Category{Category: c, Children: children[c.Id], ProductCount: counts[c.Id]}
		if ent.Children == nil {
			ent.Children = []models.Category{}
		}
		out = append(out, ent)
	}
	return out, nil
}

func (cas *CategoryService) ListCategories(ctx context.Context, who identity.Identity, filter models.CategoryFilter) (list entities.List[entities.Category], err error) {
	if err = policy.Check(who, policy.ReadPublicCatalog, ""); err != nil {
		return
	}
	cats, total, err := cas.cr.ListCategories(ctx, filter)
	if err != nil {
		return
	}
	items, err := cas.withCounts(ctx, cats)
	if err != nil {
		return
	}
	list = entities.NewList(items, total, filter.Page)
	return
}

func (cas *CategoryService) GetCategoryById(ctx context.Context, who identity.Identity, catId string) (cEnt entities.Category, err error) {
	if err = policy.Check(who, policy.ReadPublicCatalog, ""); err != nil {
		return
	}
	cat, exists, err := cas.cr.GetCategoryById(ctx, catId)
	if err != nil {
		return
	}
	if !exists {
		err = models.NotFound("category not found")
		return
	}
	ents, err := cas.withCounts(ctx, []models.Category{cat})
	if err != nil {
		return
	}
	cEnt = ents[0]
	if cat.ParentId != nil {
		parent, ok, e := cas.cr.GetCategoryById(ctx, *cat.ParentId)
		if e != nil {
			err = e
			return
		}
		if ok {
			cEnt.Parent = &parent
		}
	}
	return
}

func (cas *CategoryService) checkSlug(ctx context.Context, slug string, selfId string) error {
	existing, exists, err := cas.cr.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if exists && existing.Id != selfId {
		return models.Conflict("category with this slug already exists")
	}
	return nil
}

func (cas *CategoryService) checkParent(ctx context.Context, parentId *string, selfId string) error {
	if parentId == nil {
		return nil
	}
	if *parentId == selfId {
		return models.BadRequest("a category cannot be its own parent")
	}
	ex, err := cas.cr.CategoryExist(ctx, *parentId)
	if err != nil {
		return err
	}
	if !ex {
		return models.BadRequest("parent category does not exist")
	}
	return nil
}

func (cas *CategoryService) CreateCategory(ctx context.Context, who identity.Identity, in models.CategoryInput) (cat models.Category, err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	cat = models.Category{
		Name:        strings.TrimSpace(in.Name),
		Slug:        strings.TrimSpace(in.Slug),
		Description: in.Description,
		Image:       in.Image,
		ParentId:    in.ParentId,
	}
	if cat.Name == "" || cat.Slug == "" {
		err = models.BadRequest("name and slug are required")
		return
	}
	if err = cas.checkSlug(ctx, cat.Slug, ""); err != nil {
		return
	}
	if err = cas.checkParent(ctx, cat.ParentId, ""); err != nil {
		return
	}
	if err = cas.cr.CreateCategory(ctx, &cat); err != nil {
		return
	}
	cas.log.Info("category created", "categoryId", cat.Id, "slug", cat.Slug)
	return
}

func (cas *CategoryService) UpdateCategory(ctx context.Context, who identity.Identity, catId string, patch models.CategoryPatch) (cat models.Category, err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	cat, exists, err := cas.cr.GetCategoryById(ctx, catId)
	if err != nil {
		return
	}
	if !exists {
		err = models.NotFound("category not found")
		return
	}
	if patch.Name != nil {
		cat.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		cat.Description = *patch.Description
	}
	if patch.Image != nil {
		cat.Image = *patch.Image
	}
	if patch.Slug != nil && strings.TrimSpace(*patch.Slug) != cat.Slug {
		cat.Slug = strings.TrimSpace(*patch.Slug)
		if err = cas.checkSlug(ctx, cat.Slug, cat.Id); err != nil {
			return
		}
	}
	if patch.ParentId.Set {
		cat.ParentId = patch.ParentId.Value
		if err = cas.checkParent(ctx, cat.ParentId, cat.Id); err != nil {
			return
		}
	}
	if cat.Name == "" || cat.Slug == "" {
		err = models.BadRequest("name and slug are required")
		return
	}
	err = cas.cr.UpdateCategory(ctx, cat)
	return
}

// DeleteCategory refuses categories that still have subcategories or
// products.
func (cas *CategoryService) DeleteCategory(ctx context.Context, who identity.Identity, catId string) (err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	ex, err := cas.cr.CategoryExist(ctx, catId)
	if err != nil {
		return
	}
	if !ex {
		return models.NotFound("category not found")
	}
	if err = cas.cr.DeleteCategory(ctx, catId); err != nil {
		return
	}
	cas.log.Info("category deleted", "categoryId", catId)
	return
}
