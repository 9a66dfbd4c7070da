package entities

import (
	"storefront/models"

	"github.com/shopspring/decimal"
)

type ProductSummary struct {
	Id     string            `json:"id"`
	Name   string            `json:"name"`
	Price  decimal.Decimal   `json:"price"`
	Images models.StringList `json:"images"`
}

type UserSummary struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

type Product struct {
	models.Product
	Category *models.Category       `json:"category,omitempty"`
	Variants []models.ProductVariant `json:"variants"`
}

type ProductDetail struct {
	Product
	Reviews []Review `json:"reviews"`
}

type Category struct {
	models.Category
	Parent       *models.Category  `json:"parent,omitempty"`
	Children     []models.Category `json:"children"`
	ProductCount int               `json:"productCount"`
}

type OrderItem struct {
	models.OrderItem
	Product ProductSummary         `json:"product"`
	Variant *models.ProductVariant `json:"variant,omitempty"`
}

type Order struct {
	models.Order
	User            *UserSummary    `json:"user,omitempty"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress *models.Address `json:"shippingAddress,omitempty"`
}

type Review struct {
	models.Review
	User    UserSummary     `json:"user"`
	Product *ProductSummary `json:"product,omitempty"`
}

type User struct {
	models.User
	OrderCount int `json:"orderCount"`
}

type UserDetail struct {
	models.User
	Addresses   []models.Address `json:"addresses"`
	Orders      []Order          `json:"orders"`
	OrderCount  int              `json:"orderCount"`
	ReviewCount int              `json:"reviewCount"`
}

type Profile struct {
	models.User
	Addresses []models.Address `json:"addresses"`
}

type List[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func NewList[T any](items []T, totalCount int, page models.Page) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{
		Items:      items,
		TotalCount: totalCount,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(totalCount),
	}
}

type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

type OrderList struct {
	Items []Order  `json:"items"`
	Meta  PageMeta `json:"meta"`
}

func NewOrderList(items []Order, totalCount int, page models.Page) OrderList {
	if items == nil {
		items = []Order{}
	}
	return OrderList{
		Items: items,
		Meta: PageMeta{
			Page:       page.Page,
			Limit:      page.Limit,
			TotalCount: totalCount,
			TotalPages: page.TotalPages(totalCount),
		},
	}
}

type SearchResult struct {
	Products   []Product  `json:"products,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Orders     []Order    `json:"orders,omitempty"`
}

type SignInResult struct {
	Token     string      `json:"token"`
	SessionId string      `json:"-"`
	User      UserSummary `json:"user"`
}
