package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/entities"
	"storefront/events"
	"storefront/identity"
	"storefront/logger"
	"storefront/metrics"
	"storefront/models"
	"storefront/policy"
	"storefront/repository"
)

type OrderService struct {
	or      repository.OrderRepository
	pr      repository.ProductRepository
	ar      repository.AddressRepository
	ur      repository.UserRepository
	tx      repository.Transactor
	pub     events.Publisher
	metrics *metrics.Registry
	log     *logger.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, addressRepo repository.AddressRepository, userRepo repository.UserRepository, tx repository.Transactor, pub events.Publisher, reg *metrics.Registry, log *logger.Logger) OrderService {
	return OrderService{
		or:      orderRepo,
		pr:      productRepo,
		ar:      addressRepo,
		ur:      userRepo,
		tx:      tx,
		pub:     pub,
		metrics: reg,
		log:     log.With("service", "order"),
	}
}

func validateOrderRequest(req models.OrderRequest) error {
	if len(req.Items) == 0 {
		return models.BadRequest("order must contain at least one item")
	}
	if req.ShippingAddress == nil {
		return models.BadRequest("shipping address is required")
	}
	for _, it := range req.Items {
		if it.ProductId == "" {
			return models.BadRequest("productId is required for every item")
		}
		if it.Quantity < 1 {
			return models.BadRequest("quantity must be a positive integer")
		}
	}
	a := req.ShippingAddress
	required := []struct{ name, value string }{
		{"name", a.Name},
		{"addressLine1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return models.BadRequest("shipping address %s is required", f.name)
		}
	}
	return nil
}

type placedOrder struct {
	Total     decimal.Decimal `json:"total"`
	UserId    string          `json:"userId"`
	ItemCount int             `json:"itemCount"`
}

// PlaceOrder prices every item from the stored product, never from the
// request, and writes the address, the order and its items in one
// transaction. Stock is neither checked nor decremented.
func (ors *OrderService) PlaceOrder(ctx context.Context, who identity.Identity, req models.OrderRequest) (order entities.Order, err error) {
	if err = policy.Check(who, policy.WriteOwnOrSelf, who.ID); err != nil {
		return
	}
	if err = validateOrderRequest(req); err != nil {
		return
	}

	prodIds := make([]string, 0, len(req.Items))
	variantIds := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		prodIds = append(prodIds, it.ProductId)
		if it.VariantId != nil {
			variantIds = append(variantIds, *it.VariantId)
		}
	}
	prods, err := ors.pr.GetProductsByIds(ctx, distinct(prodIds))
	if err != nil {
		return
	}
	prodMap := make(map[string]models.Product, len(prods))
	for _, p := range prods {
		prodMap[p.Id] = p
	}
	variants, err := ors.pr.GetVariantsByIds(ctx, distinct(variantIds))
	if err != nil {
		return
	}
	variantMap := make(map[string]models.ProductVariant, len(variants))
	for _, v := range variants {
		variantMap[v.Id] = v
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		p, ok := prodMap[it.ProductId]
		if !ok {
			err = models.NotFound("product not found: %s", it.ProductId)
			return
		}
		if it.VariantId != nil {
			if v, ok := variantMap[*it.VariantId]; !ok || v.ProductId != p.Id {
				err = models.BadRequest("variant %s does not belong to product %s", *it.VariantId, p.Id)
				return
			}
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, models.OrderItem{
			ProductId: p.Id,
			VariantId: it.VariantId,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
	}

	in := req.ShippingAddress
	addr := models.Address{
		UserId:       who.ID,
		Name:         in.Name,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		Phone:        in.Phone,
	}
	newOrder := models.Order{
		UserId:          who.ID,
		Status:          models.OrderPending,
		Total:           total,
		PaymentIntentId: req.PaymentIntentId,
	}
	err = ors.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := ors.ar.CreateAddress(ctx, &addr); err != nil {
			return err
		}
		newOrder.ShippingAddressId = addr.Id
		if err := ors.or.CreateOrder(ctx, &newOrder); err != nil {
			return err
		}
		created, err := ors.or.SetOrderItems(ctx, newOrder.Id, items)
		items = created
		return err
	})
	if err != nil {
		return
	}

	ors.metrics.OrdersPlaced.Inc()
	ors.metrics.OrderValue.Observe(total.InexactFloat64())
	payload := placedOrder{Total: total, UserId: who.ID, ItemCount: len(items)}
	if e := ors.pub.Publish(ctx, events.OrderPlaced, newOrder.Id, payload); e != nil {
		ors.log.Warn("publish order placed", "orderId", newOrder.Id, "error", e)
	}
	ors.log.Info("order placed", "orderId", newOrder.Id, "userId", who.ID, "total", total.String())

	order = entities.Order{Order: newOrder, ShippingAddress: &addr}
	order.Items = make([]entities.OrderItem, 0, len(items))
	for _, it := range items {
		ent := entities.OrderItem{OrderItem: it, Product: productSummary(prodMap[it.ProductId])}
		if it.VariantId != nil {
			v := variantMap[*it.VariantId]
			ent.Variant = &v
		}
		order.Items = append(order.Items, ent)
	}
	return
}

// withDetails loads items with product summaries and variants, shipping
// addresses and buyer summaries for the given orders.
func (ors *OrderService) withDetails(ctx context.Context, orders []models.Order) ([]entities.Order, error) {
	orderIds := make([]string, 0, len(orders))
	userIds := make([]string, 0, len(orders))
	addrIds := make([]string, 0, len(orders))
	for _, o := range orders {
		orderIds = append(orderIds, o.Id)
		userIds = append(userIds, o.UserId)
		addrIds = append(addrIds, o.ShippingAddressId)
	}
	itemMap, err := ors.or.GetOrderItems(ctx, orderIds)
	if err != nil {
		return nil, err
	}
	var prodIds, variantIds []string
	for _, items := range itemMap {
		for _, it := range items {
			prodIds = append(prodIds, it.ProductId)
			if it.VariantId != nil {
				variantIds = append(variantIds, *it.VariantId)
			}
		}
	}
	prods, err := ors.pr.GetProductsByIds(ctx, distinct(prodIds))
	if err != nil {
		return nil, err
	}
	prodMap := make(map[string]models.Product, len(prods))
	for _, p := range prods {
		prodMap[p.Id] = p
	}
	variants, err := ors.pr.GetVariantsByIds(ctx, distinct(variantIds))
	if err != nil {
		return nil, err
	}
	variantMap := make(map[string]models.ProductVariant, len(variants))
	for _, v := range variants {
		variantMap[v.Id] = v
	}
	users, err := ors.ur.GetUsersByIds(ctx, distinct(userIds))
	if err != nil {
		return nil, err
	}
	addrs, err := ors.ar.GetAddressesByIds(ctx, distinct(addrIds))
	if err != nil {
		return nil, err
	}

	out := make([]entities.Order, 0, len(orders))
	for _, o := range orders {
		ent := entities.Order{Order: o, Items: make([]entities.OrderItem, 0, len(itemMap[o.Id]))}
		if u, ok := users[o.UserId]; ok {
			s := userSummary(u, true)
			ent.User = &s
		}
		if a, ok := addrs[o.ShippingAddressId]; ok {
			ent.ShippingAddress = &a
		}
		for _, it := range itemMap[o.Id] {
			item := entities.OrderItem{OrderItem: it}
			if p, ok := prodMap[it.ProductId]; ok {
				item.Product = productSummary(p)
			} else {
				item.Product = entities.ProductSummary{Id: it.ProductId}
			}
			if it.VariantId != nil {
				// a replaced variant set leaves old ids dangling
				if v, ok := variantMap[*it.VariantId]; ok {
					item.Variant = &v
				}
			}
			ent.Items = append(ent.Items, item)
		}
		out = append(out, ent)
	}
	return out, nil
}

// SearchOrders lists every order for admins, optionally narrowed to one
// buyer. Everybody else only ever sees their own orders.
func (ors *OrderService) SearchOrders(ctx context.Context, who identity.Identity, filter models.OrderFilter) (list entities.OrderList, err error) {
	if err = policy.Authenticated(who); err != nil {
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		err = models.BadRequest("unknown order status %q", filter.Status)
		return
	}
	if !who.IsAdmin() {
		filter.UserId = who.ID
	}
	action := policy.ReadOwnOrSelf
	if filter.UserId == "" {
		action = policy.AdminOnly
	}
	if err = policy.Check(who, action, filter.UserId); err != nil {
		return
	}
	orders, total, err := ors.or.SearchOrders(ctx, filter)
	if err != nil {
		return
	}
	items, err := ors.withDetails(ctx, orders)
	if err != nil {
		return
	}
	list = entities.NewOrderList(items, total, filter.Page)
	return
}

func (ors *OrderService) loadOrder(ctx context.Context, orderId string) (models.Order, error) {
	order, exists, err := ors.or.GetOrderById(ctx, orderId)
	if err != nil {
		return order, err
	}
	if !exists {
		return order, models.NotFound("order not found")
	}
	return order, nil
}

func (ors *OrderService) GetOrderById(ctx context.Context, who identity.Identity, orderId string) (oEnt entities.Order, err error) {
	if err = policy.Authenticated(who); err != nil {
		return
	}
	order, err := ors.loadOrder(ctx, orderId)
	if err != nil {
		return
	}
	if err = policy.Check(who, policy.ReadOwnOrSelf, order.UserId); err != nil {
		return
	}
	ents, err := ors.withDetails(ctx, []models.Order{order})
	if err != nil {
		return
	}
	oEnt = ents[0]
	return
}

// UpdateOrder touches status, tracking and notes only; the total and the
// items stay as they were placed.
func (ors *OrderService) UpdateOrder(ctx context.Context, who identity.Identity, orderId string, patch models.OrderPatch) (oEnt entities.Order, err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		err = models.BadRequest("unknown order status %q", *patch.Status)
		return
	}
	order, err := ors.loadOrder(ctx, orderId)
	if err != nil {
		return
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.TrackingNumber != nil {
		order.TrackingNumber = patch.TrackingNumber
	}
	if patch.TrackingCompany != nil {
		order.TrackingCompany = patch.TrackingCompany
	}
	if patch.Notes != nil {
		order.Notes = patch.Notes
	}
	if err = ors.or.UpdateOrder(ctx, order); err != nil {
		return
	}
	ors.log.Info("order updated", "orderId", orderId, "status", string(order.Status))
	return ors.GetOrderById(ctx, who, orderId)
}

func (ors *OrderService) DeleteOrder(ctx context.Context, who identity.Identity, orderId string) (err error) {
	if err = policy.Check(who, policy.AdminOnly, ""); err != nil {
		return
	}
	if _, err = ors.loadOrder(ctx, orderId); err != nil {
		return
	}
	if err = ors.or.DeleteOrder(ctx, orderId); err != nil {
		return
	}
	ors.log.Info("order deleted", "orderId", orderId)
	return
}

// FindOrders backs the search endpoint: admins match every order, other
// callers only their own.
func (ors *OrderService) FindOrders(ctx context.Context, who identity.Identity, text string, limit int) ([]entities.Order, error) {
	if err := policy.Authenticated(who); err != nil {
		return nil, err
	}
	userId := ""
	if !who.IsAdmin() {
		userId = who.ID
	}
	orders, err := ors.or.FindOrders(ctx, text, userId, limit)
	if err != nil {
		return nil, err
	}
	return ors.withDetails(ctx, orders)
}
