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

type AddressRepository interface {
	CreateAddress(ctx context.Context, addr *models.Address) error
	GetAddressById(ctx context.Context, id string) (addr models.Address, exists bool, err error)
	GetAddressesByIds(ctx context.Context, ids []string) (map[string]models.Address, error)
	GetAddressesByUser(ctx context.Context, userId string) ([]models.Address, error)
}

type AddressRepo struct {
	db  *sql.DB
	log *logger.Logger
}

func NewAddressRepository(conn *sql.DB, log *logger.Logger) (AddressRepository, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return &AddressRepo{
		db:  conn,
		log: log.With("repository", "address"),
	}, nil
}

const addressColumns = "id, user_id, name, address_line1, address_line2, city, state, postal_code, country, phone, created_at"

func scanAddress(row scanner) (a models.Address, err error) {
	err = row.Scan(&a.Id, &a.UserId, &a.Name, &a.AddressLine1, &a.AddressLine2, &a.City, &a.State,
		&a.PostalCode, &a.Country, &a.Phone, &a.CreatedAt)
	return
}

func (a *AddressRepo) CreateAddress(ctx context.Context, addr *models.Address) error {
	addr.Id = uuid.NewString()
	addr.CreatedAt = time.Now().UTC()
	_, err := conn(ctx, a.db).ExecContext(ctx,
		"INSERT INTO addresses ("+addressColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		addr.Id, addr.UserId, addr.Name, addr.AddressLine1, addr.AddressLine2, addr.City, addr.State,
		addr.PostalCode, addr.Country, addr.Phone, addr.CreatedAt)
	if err != nil {
		return fail(a.log, "CreateAddress", err)
	}
	return nil
}

func (a *AddressRepo) GetAddressById(ctx context.Context, id string) (addr models.Address, exists bool, err error) {
	row := conn(ctx, a.db).QueryRowContext(ctx, "SELECT "+addressColumns+" FROM addresses WHERE id = $1", id)
	addr, err = scanAddress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return
		}
		err = fail(a.log, "GetAddressById", err)
		return
	}
	exists = true
	return
}

func (a *AddressRepo) queryAddresses(ctx context.Context, op, stmt string, args ...any) ([]models.Address, error) {
	rows, err := conn(ctx, a.db).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fail(a.log, op, err)
	}
	defer rows.Close()
	var addrs []models.Address
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, fail(a.log, op, err)
		}
		addrs = append(addrs, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(a.log, op, err)
	}
	return addrs, nil
}

func (a *AddressRepo) GetAddressesByIds(ctx context.Context, ids []string) (map[string]models.Address, error) {
	res := make(map[string]models.Address, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var q query
	addrs, err := a.queryAddresses(ctx, "GetAddressesByIds",
		"SELECT "+addressColumns+" FROM addresses WHERE id IN "+q.in(ids), q.args...)
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		res[addr.Id] = addr
	}
	return res, nil
}

func (a *AddressRepo) GetAddressesByUser(ctx context.Context, userId string) ([]models.Address, error) {
	return a.queryAddresses(ctx, "GetAddressesByUser",
		"SELECT "+addressColumns+" FROM addresses WHERE user_id = $1 ORDER BY created_at DESC", userId)
}
