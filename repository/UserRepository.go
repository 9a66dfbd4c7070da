package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/logger"
	"storefront/models"
)

type UserRepository interface {
	GetUserById(ctx context.Context, id string) (models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, bool, error)
	GetUsersByIds(ctx context.Context, ids []string) (map[string]models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter) (users []models.User, totalCount int, err error)
	AddNewUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user models.User) error
	DeleteUser(ctx context.Context, id string) error
	EncryptPassword(userPass string) (hashedPassword string, err error)
	VerifyPassword(hashedPassword string, sentPassword string) bool
}

type UserRepo struct {
	db  *sql.DB
	log *logger.Logger
}

func NewUserRepository(conn *sql.DB, log *logger.Logger) (UserRepository, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	err := conn.Ping()
	if err != nil {
		return nil, err
	}
	return &UserRepo{
		db:  conn,
		log: log.With("repository", "user"),
	}, nil
}

const userColumns = "id, name, email, hashed_password, role, image, created_at, updated_at"

func scanUser(row scanner) (u models.User, err error) {
	err = row.Scan(&u.Id, &u.Name, &u.Email, &u.HashedPassword, &u.Role, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	return
}

func (u *UserRepo) getOne(ctx context.Context, op, where string, arg any) (user models.User, exists bool, err error) {
	row := conn(ctx, u.db).QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	user, err = scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return
		}
		err = fail(u.log, op, err)
		return
	}
	exists = true
	return
}

func (u *UserRepo) GetUserById(ctx context.Context, id string) (models.User, bool, error) {
	return u.getOne(ctx, "GetUserById", "id = $1", id)
}

// GetUserByEmail matches case-insensitively.
func (u *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	return u.getOne(ctx, "GetUserByEmail", "LOWER(email) = LOWER($1)", email)
}

func (u *UserRepo) queryUsers(ctx context.Context, op, stmt string, args ...any) ([]models.User, error) {
	rows, err := conn(ctx, u.db).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fail(u.log, op, err)
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fail(u.log, op, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(u.log, op, err)
	}
	return users, nil
}

func (u *UserRepo) GetUsersByIds(ctx context.Context, ids []string) (map[string]models.User, error) {
	res := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var q query
	users, err := u.queryUsers(ctx, "GetUsersByIds", "SELECT "+userColumns+" FROM users WHERE id IN "+q.in(ids), q.args...)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		res[user.Id] = user
	}
	return res, nil
}

func (u *UserRepo) ListUsers(ctx context.Context, filter models.UserFilter) (users []models.User, totalCount int, err error) {
	var q query
	if filter.Role != "" {
		q.and("role = " + q.arg(filter.Role))
	}
	if filter.Query != "" {
		like := q.arg(likePattern(filter.Query))
		q.and("(LOWER(name) LIKE " + like + " OR LOWER(email) LIKE " + like + ")")
	}
	if err = conn(ctx, u.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+q.clause(), q.args...).Scan(&totalCount); err != nil {
		err = fail(u.log, "ListUsers", err)
		return
	}
	page := filter.Page
	users, err = u.queryUsers(ctx, "ListUsers",
		"SELECT "+userColumns+" FROM users"+q.clause()+
			" ORDER BY created_at DESC, id LIMIT "+q.arg(page.Limit)+" OFFSET "+q.arg(page.Offset()), q.args...)
	return
}

func (u *UserRepo) AddNewUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.Id = uuid.NewString()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	_, err := conn(ctx, u.db).ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		user.Id, user.Name, user.Email, user.HashedPassword, user.Role, user.Image, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Conflict("user with this email already exists")
		}
		return fail(u.log, "AddNewUser", err)
	}
	return nil
}

func (u *UserRepo) UpdateUser(ctx context.Context, user models.User) error {
	_, err := conn(ctx, u.db).ExecContext(ctx,
		"UPDATE users SET name = $1, hashed_password = $2, role = $3, image = $4, updated_at = $5 WHERE id = $6",
		user.Name, user.HashedPassword, user.Role, user.Image, time.Now().UTC(), user.Id)
	if err != nil {
		return fail(u.log, "UpdateUser", err)
	}
	return nil
}

// DeleteUser removes the user's reviews and addresses first. A user that
// has placed orders cannot be deleted.
func (u *UserRepo) DeleteUser(ctx context.Context, id string) error {
	return withinTx(ctx, u.db, func(ctx context.Context) error {
		db := conn(ctx, u.db)
		var orders int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE user_id = $1", id).Scan(&orders); err != nil {
			return fail(u.log, "DeleteUser[1]", err)
		}
		if orders > 0 {
			return models.Conflict("cannot delete a user with orders")
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM reviews WHERE user_id = $1", id); err != nil {
			return fail(u.log, "DeleteUser[2]", err)
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM addresses WHERE user_id = $1", id); err != nil {
			return fail(u.log, "DeleteUser[3]", err)
		}
		if _, err := db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id); err != nil {
			if isForeignKeyViolation(err) {
				return models.Conflict("user is still referenced")
			}
			return fail(u.log, "DeleteUser[4]", err)
		}
		return nil
	})
}

func (u *UserRepo) EncryptPassword(userPass string) (hashedPassword string, err error) {
	var password []byte
	password, err = bcrypt.GenerateFromPassword([]byte(userPass), bcrypt.DefaultCost)
	if err != nil {
		err = fail(u.log, "EncryptPassword", err)
		return
	}
	hashedPassword = string(password)
	return
}

func (u *UserRepo) VerifyPassword(hashedPassword string, sentPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(sentPassword))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		u.log.Warn("VerifyPassword", "error", err)
	}
	return err == nil
}
