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

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	SetOrderItems(ctx context.Context, orderId string, items []models.OrderItem) ([]models.OrderItem, error)
	GetOrderItems(ctx context.Context, orderIds []string) (map[string][]models.OrderItem, error)
	GetOrderById(ctx context.Context, orderId string) (order models.Order, exists bool, err error)
	SearchOrders(ctx context.Context, filter models.OrderFilter) (orders []models.Order, totalCount int, err error)
	FindOrders(ctx context.Context, text string, userId string, limit int) ([]models.Order, error)
	UpdateOrder(ctx context.Context, order models.Order) error
	DeleteOrder(ctx context.Context, orderId string) error
	CountOrdersByUsers(ctx context.Context, userIds []string) (map[string]int, error)
}

type OrderRepo struct {
	db  *sql.DB
	log *logger.Logger
}

func NewOrderRepository(conn *sql.DB, log *logger.Logger) (OrderRepository, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return &OrderRepo{
		db:  conn,
		log: log.With("repository", "order"),
	}, nil
}

const orderColumns = "o.id, o.user_id, o.status, o.total, o.payment_intent_id, o.shipping_address_id, " +
	"o.tracking_number, o.tracking_company, o.notes, o.created_at, o.updated_at"

func scanOrder(row scanner) (o models.Order, err error) {
	err = row.Scan(&o.Id, &o.UserId, &o.Status, &o.Total, &o.PaymentIntentId, &o.ShippingAddressId,
		&o.TrackingNumber, &o.TrackingCompany, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return
}

func (o *OrderRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	order.Id = uuid.NewString()
	order.CreatedAt, order.UpdatedAt = now, now
	_, err := conn(ctx, o.db).ExecContext(ctx,
		`INSERT INTO orders (id, user_id, status, total, payment_intent_id, shipping_address_id,
			tracking_number, tracking_company, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		order.Id, order.UserId, order.Status, order.Total, order.PaymentIntentId, order.ShippingAddressId,
		order.TrackingNumber, order.TrackingCompany, order.Notes, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fail(o.log, "CreateOrder", err)
	}
	return nil
}

func (o *OrderRepo) SetOrderItems(ctx context.Context, orderId string, items []models.OrderItem) ([]models.OrderItem, error) {
	db := conn(ctx, o.db)
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		it.Id = uuid.NewString()
		it.OrderId = orderId
		_, err := db.ExecContext(ctx,
			"INSERT INTO order_items (id, order_id, product_id, variant_id, quantity, price) VALUES ($1, $2, $3, $4, $5, $6)",
			it.Id, it.OrderId, it.ProductId, it.VariantId, it.Quantity, it.Price)
		if err != nil {
			return nil, fail(o.log, "SetOrderItems", err)
		}
		out = append(out, it)
	}
	return out, nil
}

// GetOrderItems groups the items of every given order.
func (o *OrderRepo) GetOrderItems(ctx context.Context, orderIds []string) (map[string][]models.OrderItem, error) {
	res := make(map[string][]models.OrderItem, len(orderIds))
	if len(orderIds) == 0 {
		return res, nil
	}
	var q query
	rows, err := conn(ctx, o.db).QueryContext(ctx,
		"SELECT id, order_id, product_id, variant_id, quantity, price FROM order_items WHERE order_id IN "+q.in(orderIds)+" ORDER BY id",
		q.args...)
	if err != nil {
		return nil, fail(o.log, "GetOrderItems[1]", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.Id, &it.OrderId, &it.ProductId, &it.VariantId, &it.Quantity, &it.Price); err != nil {
			return nil, fail(o.log, "GetOrderItems[2]", err)
		}
		res[it.OrderId] = append(res[it.OrderId], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(o.log, "GetOrderItems[3]", err)
	}
	return res, nil
}

func (o *OrderRepo) GetOrderById(ctx context.Context, orderId string) (order models.Order, exists bool, err error) {
	row := conn(ctx, o.db).QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.id = $1", orderId)
	order, err = scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return
		}
		err = fail(o.log, "GetOrderById", err)
		return
	}
	exists = true
	return
}

func (o *OrderRepo) queryOrders(ctx context.Context, op, stmt string, args ...any) ([]models.Order, error) {
	rows, err := conn(ctx, o.db).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fail(o.log, op, err)
	}
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, fail(o.log, op, err)
		}
		orders = append(orders, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(o.log, op, err)
	}
	return orders, nil
}

func (o *OrderRepo) SearchOrders(ctx context.Context, filter models.OrderFilter) (orders []models.Order, totalCount int, err error) {
	var q query
	if filter.Status != "" {
		q.and("o.status = " + q.arg(filter.Status))
	}
	if filter.UserId != "" {
		q.and("o.user_id = " + q.arg(filter.UserId))
	}
	if err = conn(ctx, o.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o"+q.clause(), q.args...).Scan(&totalCount); err != nil {
		err = fail(o.log, "SearchOrders", err)
		return
	}
	page := filter.Page
	orders, err = o.queryOrders(ctx, "SearchOrders",
		"SELECT "+orderColumns+" FROM orders o"+q.clause()+
			" ORDER BY o.created_at DESC, o.id LIMIT "+q.arg(page.Limit)+" OFFSET "+q.arg(page.Offset()), q.args...)
	return
}

// FindOrders matches text against the order id, tracking details and the
// buyer's name or email. A non-empty userId restricts the result to that buyer.
func (o *OrderRepo) FindOrders(ctx context.Context, text string, userId string, limit int) ([]models.Order, error) {
	var q query
	like := q.arg(likePattern(text))
	q.and("(LOWER(o.id) LIKE " + like +
		" OR LOWER(COALESCE(o.tracking_number, '')) LIKE " + like +
		" OR LOWER(COALESCE(o.tracking_company, '')) LIKE " + like +
		" OR LOWER(u.name) LIKE " + like +
		" OR LOWER(u.email) LIKE " + like + ")")
	if userId != "" {
		q.and("o.user_id = " + q.arg(userId))
	}
	return o.queryOrders(ctx, "FindOrders",
		"SELECT "+orderColumns+" FROM orders o JOIN users u ON u.id = o.user_id"+q.clause()+
			" ORDER BY o.created_at DESC LIMIT "+q.arg(limit), q.args...)
}

// UpdateOrder only touches status, tracking and notes; total and items are
// fixed at creation.
func (o *OrderRepo) UpdateOrder(ctx context.Context, order models.Order) error {
	_, err := conn(ctx, o.db).ExecContext(ctx,
		`UPDATE orders SET status = $1, tracking_number = $2, tracking_company = $3, notes = $4, updated_at = $5
		WHERE id = $6`,
		order.Status, order.TrackingNumber, order.TrackingCompany, order.Notes, time.Now().UTC(), order.Id)
	if err != nil {
		return fail(o.log, "UpdateOrder", err)
	}
	return nil
}

func (o *OrderRepo) DeleteOrder(ctx context.Context, orderId string) error {
	return withinTx(ctx, o.db, func(ctx context.Context) error {
		db := conn(ctx, o.db)
		if _, err := db.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", orderId); err != nil {
			return fail(o.log, "DeleteOrder[1]", err)
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderId); err != nil {
			return fail(o.log, "DeleteOrder[2]", err)
		}
		return nil
	})
}

func (o *OrderRepo) CountOrdersByUsers(ctx context.Context, userIds []string) (map[string]int, error) {
	res := make(map[string]int, len(userIds))
	if len(userIds) == 0 {
		return res, nil
	}
	var q query
	rows, err := conn(ctx, o.db).QueryContext(ctx,
		"SELECT user_id, COUNT(*) FROM orders WHERE user_id IN "+q.in(userIds)+" GROUP BY user_id", q.args...)
	if err != nil {
		return nil, fail(o.log, "CountOrdersByUsers[1]", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fail(o.log, "CountOrdersByUsers[2]", err)
		}
		res[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fail(o.log, "CountOrdersByUsers[3]", err)
	}
	return res, nil
}
