package services

import (
	"context"
	"strings"

	"storefront/entities"
	"storefront/identity"
	"storefront/models"
	"storefront/policy"
	"storefront/repository"
)

const (
	SearchProducts   = "products"
	SearchCategories = "categories"
	SearchOrders     = "orders"
)

type SearchQuery struct {
	Text  string
	Type  string // empty searches every type
	Limit int
}

// SearchService matches free text across products, categories and orders.
// Results are unranked. Orders are only searched for signed-in callers.
type SearchService struct {
	products   *ProductService
	categories *CategoryService
	orders     *OrderService
	cr         repository.CategoryRepository
}

func NewSearchService(products *ProductService, categories *CategoryService, orders *OrderService, catRepo repository.CategoryRepository) SearchService {
	return SearchService{
		products:   products,
		categories: categories,
		orders:     orders,
		cr:         catRepo,
	}
}

func (ss *SearchService) Search(ctx context.Context, who identity.Identity, q SearchQuery) (res entities.SearchResult, err error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		err = models.BadRequest("search query is required")
		return
	}
	switch q.Type {
	case "", SearchProducts, SearchCategories, SearchOrders:
	default:
		err = models.BadRequest("unknown search type %q", q.Type)
		return
	}
	if q.Limit < 1 {
		q.Limit = models.DefaultPageLimit
	}
	if q.Limit > models.MaxPageLimit {
		q.Limit = models.MaxPageLimit
	}
	if err = policy.Check(who, policy.ReadPublicCatalog, ""); err != nil {
		return
	}

	if q.Type == "" || q.Type == SearchProducts {
		list, e := ss.products.ListProducts(ctx, who, models.ProductFilter{
			Query: q.Text,
			Page:  models.Page{Page: 1, Limit: q.Limit},
		})
		if e != nil {
			err = e
			return
		}
		res.Products = list.Items
	}
	if q.Type == "" || q.Type == SearchCategories {
		cats, e := ss.cr.SearchCategories(ctx, q.Text, q.Limit)
		if e != nil {
			err = e
			return
		}
		if res.Categories, err = ss.categories.withCounts(ctx, cats); err != nil {
			return
		}
	}
	if (q.Type == "" || q.Type == SearchOrders) && who.Authenticated() {
		if res.Orders, err = ss.orders.FindOrders(ctx, who, q.Text, q.Limit); err != nil {
			return
		}
	}
	return
}
