// Package storetest wires repositories over a private in-memory SQLite
// database for tests.
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"storefront/logger"
	"storefront/models"
	"storefront/repository"
)

var dbSeq atomic.Int64

type Store struct {
	DB         *sql.DB
	Log        *logger.Logger
	Tx         repository.Transactor
	Users      repository.UserRepository
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Orders     repository.OrderRepository
	Addresses  repository.AddressRepository
	Reviews    repository.ReviewRepository
	Sessions   *Sessions
}

// New opens a fresh database, applies the schema and builds every
// repository on top of it. The database is closed with the test.
func New(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(ctx, db))

	log := logger.NewNop()
	s := &Store{DB: db, Log: log, Tx: repository.NewTransactor(db), Sessions: NewSessions()}
	s.Users, err = repository.NewUserRepository(db, log)
	require.NoError(t, err)
	s.Products, err = repository.NewProductRepository(db, log)
	require.NoError(t, err)
	s.Categories, err = repository.NewCategoryRepository(db, log)
	require.NoError(t, err)
	s.Orders, err = repository.NewOrderRepository(db, log)
	require.NoError(t, err)
	s.Addresses, err = repository.NewAddressRepository(db, log)
	require.NoError(t, err)
	s.Reviews, err = repository.NewReviewRepository(db, log)
	require.NoError(t, err)
	return s
}

// Count returns the number of rows in table.
func (s *Store) Count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func (s *Store) User(t *testing.T, email string, role models.Role) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, Role: role}
	require.NoError(t, s.Users.AddNewUser(context.Background(), &u))
	return u
}

// UserWithPassword stores a user whose password hashes to password.
func (s *Store) UserWithPassword(t *testing.T, email, password string, role models.Role) models.User {
	t.Helper()
	hashed, err := s.Users.EncryptPassword(password)
	require.NoError(t, err)
	u := models.User{Name: email, Email: email, Role: role, HashedPassword: &hashed}
	require.NoError(t, s.Users.AddNewUser(context.Background(), &u))
	return u
}

func (s *Store) Category(t *testing.T, slug string, parentId *string) models.Category {
	t.Helper()
	c := models.Category{Name: slug, Slug: slug, ParentId: parentId}
	require.NoError(t, s.Categories.CreateCategory(context.Background(), &c))
	return c
}

func (s *Store) Product(t *testing.T, name, price, categoryId string) models.Product {
	t.Helper()
	p := models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryId: categoryId,
		IsActive:   true,
	}
	require.NoError(t, s.Products.CreateProduct(context.Background(), &p))
	return p
}

func (s *Store) Review(t *testing.T, userId, productId string, rating int) models.Review {
	t.Helper()
	r := models.Review{UserId: userId, ProductId: productId, Rating: rating}
	require.NoError(t, s.Reviews.CreateReview(context.Background(), &r))
	return r
}

// Sessions is an in-memory stand-in for the Redis session store.
type Sessions struct {
	mu    sync.Mutex
	items map[string]session
}

type session struct {
	userId  string
	role    models.Role
	expires time.Time
}

func NewSessions() *Sessions {
	return &Sessions{items: map[string]session{}}
}

func (s *Sessions) CreateSession(_ context.Context, userId string, role models.Role) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.items[id] = session{userId: userId, role: role, expires: time.Now().Add(time.Hour)}
	return id, nil
}

func (s *Sessions) DeleteSession(_ context.Context, sessionId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionId)
	return nil
}

func (s *Sessions) GetUserSessionInfo(_ context.Context, sessionId string) (string, models.Role, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[sessionId]
	if !ok || time.Now().After(sess.expires) {
		return "", "", false, nil
	}
	return sess.userId, sess.role, true, nil
}

func (s *Sessions) RefreshSession(_ context.Context, sessionId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[sessionId]
	if !ok {
		return models.Unauthorized("session expired")
	}
	sess.expires = time.Now().Add(time.Hour)
	s.items[sessionId] = sess
	return nil
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
