package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type Product struct {
	Id           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Price        decimal.Decimal     `json:"price"`
	ComparePrice decimal.NullDecimal `json:"comparePrice"`
	Sku          string              `json:"sku"`
	Stock        int                 `json:"stock"`
	Images       StringList          `json:"images"`
	Featured     bool                `json:"featured"`
	IsActive     bool                `json:"isActive"`
	CategoryId   string              `json:"categoryId"`
	Rating       float64             `json:"rating"`
	ReviewCount  int                 `json:"reviewCount"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type ProductVariant struct {
	Id         string          `json:"id"`
	ProductId  string          `json:"productId"`
	Name       string          `json:"name"`
	Sku        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	Attributes Attributes      `json:"attributes"`
}

type Category struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	ParentId    *string   `json:"parentId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Order struct {
	Id                string          `json:"id"`
	UserId            string          `json:"userId"`
	Status            OrderStatus     `json:"status"`
	Total             decimal.Decimal `json:"total"`
	PaymentIntentId   *string         `json:"paymentIntentId"`
	ShippingAddressId string          `json:"shippingAddressId"`
	TrackingNumber    *string         `json:"trackingNumber"`
	TrackingCompany   *string         `json:"trackingCompany"`
	Notes             *string         `json:"notes"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	Id        string          `json:"id"`
	OrderId   string          `json:"orderId"`
	ProductId string          `json:"productId"`
	VariantId *string         `json:"variantId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Address struct {
	Id           string    `json:"id"`
	UserId       string    `json:"userId"`
	Name         string    `json:"name"`
	AddressLine1 string    `json:"addressLine1"`
	AddressLine2 string    `json:"addressLine2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postalCode"`
	Country      string    `json:"country"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Review struct {
	Id        string    `json:"id"`
	UserId    string    `json:"userId"`
	ProductId string    `json:"productId"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	Id             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword *string   `json:"-"`
	Role           Role      `json:"role"`
	Image          string    `json:"image"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NullString tells an absent JSON field apart from an explicit null.
type NullString struct {
	Set   bool
	Value *string
}

func (ns *NullString) UnmarshalJSON(data []byte) error {
	ns.Set = true
	if string(data) == "null" {
		ns.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ns.Value = &s
	return nil
}

// request payloads

type VariantInput struct {
	Name       string          `json:"name"`
	Sku        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	Attributes Attributes      `json:"attributes"`
}

type ProductInput struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Price        decimal.Decimal  `json:"price"`
	ComparePrice *decimal.Decimal `json:"comparePrice"`
	Sku          string           `json:"sku"`
	Stock        int              `json:"stock"`
	Images       []string         `json:"images"`
	Featured     *bool            `json:"featured"`
	IsActive     *bool            `json:"isActive"`
	CategoryId   string           `json:"categoryId"`
	Variants     []VariantInput   `json:"variants"`
}

// ProductPatch has no rating fields: those belong to the rating aggregation.
type ProductPatch struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	ComparePrice *decimal.Decimal `json:"comparePrice"`
	Sku          *string          `json:"sku"`
	Stock        *int             `json:"stock"`
	Images       *[]string        `json:"images"`
	Featured     *bool            `json:"featured"`
	IsActive     *bool            `json:"isActive"`
	CategoryId   *string          `json:"categoryId"`
	// nil leaves variants untouched, a non-nil slice replaces all of them
	Variants *[]VariantInput `json:"variants"`
}

type ProductFilter struct {
	CategorySlug string
	Featured     bool
	Query        string
	Page         Page
}

type CategoryInput struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	ParentId    *string `json:"parentId"`
}

type CategoryPatch struct {
	Name        *string    `json:"name"`
	Slug        *string    `json:"slug"`
	Description *string    `json:"description"`
	Image       *string    `json:"image"`
	ParentId    NullString `json:"parentId"`
}

type CategoryFilter struct {
	// Set with a nil Value selects root categories.
	ParentId NullString
	Page     Page
}

type OrderItemInput struct {
	ProductId string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	VariantId *string `json:"variantId"`
}

type AddressInput struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

type OrderRequest struct {
	Items           []OrderItemInput `json:"items"`
	ShippingAddress *AddressInput    `json:"shippingAddress"`
	PaymentIntentId *string          `json:"paymentIntentId"`
}

type OrderPatch struct {
	Status          *OrderStatus `json:"status"`
	TrackingNumber  *string      `json:"trackingNumber"`
	TrackingCompany *string      `json:"trackingCompany"`
	Notes           *string      `json:"notes"`
}

type OrderFilter struct {
	Status OrderStatus
	UserId string
	Page   Page
}

type ReviewInput struct {
	ProductId string `json:"productId"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
}

type ReviewPatch struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type ReviewFilter struct {
	ProductId string
	UserId    string
	Rating    int
	Page      Page
}

type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Image    string `json:"image"`
}

type UserPatch struct {
	Name     *string `json:"name"`
	Image    *string `json:"image"`
	Password *string `json:"password"`
	Role     *Role   `json:"role"`
}

type ProfilePatch struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type UserFilter struct {
	Role  Role
	Query string
	Page  Page
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
