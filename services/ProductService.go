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

type ProductService struct {
	pr  repository.ProductRepository
	cr  repository.CategoryRepository
	rr  repository.ReviewRepository
	ur  repository.UserRepository
	tx  repository.Transactor
	log *logger.Logger
}

func NewProductService(pRepo repository.ProductRepository, catRepo repository.CategoryRepository, reviewRepo repository.ReviewRepository, userRepo repository.UserRepository, tx repository.Transactor, log *logger.Logger) ProductService {
	return ProductService{
		pr:  pRepo,
		cr:  catRepo,
		rr:  reviewRepo,
		ur:  userRepo,
		tx:  tx,
		log: log.With("service", "product"),
	}
}

func (ps *ProductService) ListProducts(ctx context.Context, who identity.Identity, filter models.ProductFilter) (list entities.List[entities.Product], err error) {
	if err = policy.Check(who, policy.ReadPublicCatalog, ""); err != nil {
		return
	}
	prods, total, err := ps.pr.ListProducts(ctx, filter)
	if err != nil {
		return
	}
	items, err := ps.withRelations(ctx, prods)
	if err != nil {
		return
	}
	list = entities.NewList(items, total, filter.Page)
	return
}

// withRelations attaches category and variants to every product.
func (ps *ProductService) withRelations(ctx context.Context, prods []models.Product) ([]entities.Product, error) {
	ids := make([]string, 0, len(prods))
	catIds := make([]string, 0, len(prods))
	for _, p := range prods {
		ids = append(ids, p.Id)
		catIds = append(catIds, p.CategoryId)
	}
	cats, err := ps.cr.GetCategoriesByIds(ctx, distinct(catIds))
	if err != nil {
		return nil, err
	}
	variants, err := ps.pr.GetVariants(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entities.Product, 0, len(prods))
	for _, p := range prods {
		ent := entities.Product{Product: p, Variants: variants[p.Id]}
		if ent.Variants == nil {
			ent.Variants = []models.ProductVariant{}
		}
		if c, ok := cats[p.CategoryId]; ok {
			ent.Category = &c
		}
		out = append(out, ent)
	}
	return out, nil
}

func (ps *ProductService) getProduct(ctx context.Context, prodId string) (entities.Product, error) {
	p, exists, err := ps.pr.GetProductById(ctx, prodId)
	if err != nil {
		return entities.Product{}, err
	}
	if !exists {
		return entities.Product{}, models.NotFound("product not found")
	}
	ents, err := ps.withRelations(ctx, []models.Product{p})
	if err != nil {
		return entities.Product{}, err
	}
	return ents[0], nil
}

func (ps *ProductService) GetProductById(ctx context.Context, who identity.Identity, prodId string) (pEnt entities.ProductDetail, err error) {
	if err = policy.Check(who, policy.ReadPublicCatalog, ""); err != nil {
		return
	}
	pEnt.Product, err = ps.getProduct(ctx, prodId)
	if err != nil {
		return
	}
	reviews, err := ps.rr.GetProductReviews(ctx, prodId)
	if err != nil {
		return
	}
	userIds := make([]string, 0, len(reviews))
	for _, r := range reviews {
		userIds = append(userIds, r.UserId)
	}
	users, err := ps.ur.GetUsersByIds(ctx, distinct(userIds))
	if err != nil {
		return
	}
	pEnt.Reviews = make([]entities.Review, 0, len(reviews))
	for _, r := range reviews {
		pEnt.Reviews = append(pEnt.Reviews, entities.Review{Review: r, User: userSummary(users[r.UserId], false)})
	}
	return
}

func validateProduct(p models.Product) error {
	if p.Name == "" {
		return models.BadRequest("name is required")
	}
	if p.CategoryId == "" {
		return models.BadRequest("categoryId is required")
	}
	if p.Price.IsNegative() {
		return models.BadRequest("price must not be negative")
	}
	if p.ComparePrice.Valid && p.ComparePrice.Decimal.IsNegative() {
		return models.BadRequest("comparePrice must not be negative")
	}
	if p.Stock < 0 {
		return models.BadRequest("stock must not be negative")
	}
	return nil
}

func validateVariants(variants []models.VariantInput) error {
	for _, v := range variants {
		if v.Name == "" {
			return models.BadRequest("variant name is required")
		}
		if v.Price.IsNegative() {
			return models.BadRequest("variant price must not be negative")
		}
		if v.Stock < 0 {
			return models.BadRequest("variant stock must not be negative")
		}
	}
	return nil
}

func (ps *ProductService) checkCategory(ctx context.Context, catId string) error {
	ex, err := ps.cr.CategoryExist(ctx, catId)
	if err != nil {
		return err
	}
	if !ex {
		return models.BadRequest("category does not exist")
	}
	return nil
}

func (ps *ProductService) CreateProduct(ctx context.Context, who identity.Identity, in models.ProductInput) (pEnt entities.Product, err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	p := models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Sku:         in.Sku,
		Stock:       in.Stock,
		Images:      models.StringList(in.Images),
		IsActive:    true,
		CategoryId:  in.CategoryId,
	}
	if in.ComparePrice != nil {
		p.ComparePrice.Decimal, p.ComparePrice.Valid = *in.ComparePrice, true
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err = validateProduct(p); err != nil {
		return
	}
	if err = validateVariants(in.Variants); err != nil {
		return
	}
	if err = ps.checkCategory(ctx, p.CategoryId); err != nil {
		return
	}

	variants := []models.ProductVariant{}
	err = ps.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := ps.pr.CreateProduct(ctx, &p); err != nil {
			return err
		}
		if len(in.Variants) == 0 {
			return nil
		}
		created, err := ps.pr.ReplaceVariants(ctx, p.Id, in.Variants)
		variants = created
		return err
	})
	if err != nil {
		return
	}
	ps.log.Info("product created", "productId", p.Id)
	pEnt = entities.Product{Product: p, Variants: variants}
	return
}

func applyProductPatch(p *models.Product, patch models.ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ComparePrice != nil {
		p.ComparePrice.Decimal, p.ComparePrice.Valid = *patch.ComparePrice, true
	}
	if patch.Sku != nil {
		p.Sku = *patch.Sku
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Images != nil {
		p.Images = models.StringList(*patch.Images)
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.CategoryId != nil {
		p.CategoryId = *patch.CategoryId
	}
}

// UpdateProductById applies a partial update. A variant list in the patch
// replaces the whole variant set in the same transaction as the product row.
func (ps *ProductService) UpdateProductById(ctx context.Context, who identity.Identity, prodId string, patch models.ProductPatch) (pEnt entities.Product, err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	p, exists, err := ps.pr.GetProductById(ctx, prodId)
	if err != nil {
		return
	}
	if !exists {
		err = models.NotFound("product not found")
		return
	}
	oldCategory := p.CategoryId
	applyProductPatch(&p, patch)
	if p.Images == nil {
		p.Images = models.StringList{}
	}
	if err = validateProduct(p); err != nil {
		return
	}
	if patch.Variants != nil {
		if err = validateVariants(*patch.Variants); err != nil {
			return
		}
	}
	if p.CategoryId != oldCategory {
		if err = ps.checkCategory(ctx, p.CategoryId); err != nil {
			return
		}
	}

	err = ps.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := ps.pr.UpdateProduct(ctx, p); err != nil {
			return err
		}
		if patch.Variants == nil {
			return nil
		}
		_, err := ps.pr.ReplaceVariants(ctx, p.Id, *patch.Variants)
		return err
	})
	if err != nil {
		return
	}
	return ps.getProduct(ctx, prodId)
}

func (ps *ProductService) DeleteProductById(ctx context.Context, who identity.Identity, prodId string) (err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	_, exists, err := ps.pr.GetProductById(ctx, prodId)
	if err != nil {
		return
	}
	if !exists {
		return models.NotFound("product not found")
	}
	if err = ps.pr.DeleteProduct(ctx, prodId); err != nil {
		return
	}
	ps.log.Info("product deleted", "productId", prodId)
	return
}
