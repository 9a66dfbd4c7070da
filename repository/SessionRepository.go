package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storefront/logger"
	"storefront/models"
)

const sessionPrefix = "session:"

type SessionRepository interface {
	CreateSession(ctx context.Context, userId string, role models.Role) (sessionId string, err error)
	DeleteSession(ctx context.Context, sessionId string) error
	RefreshSession(ctx context.Context, sessionId string) error
	GetUserSessionInfo(ctx context.Context, sessionId string) (userId string, role models.Role, exists bool, err error)
}

type SessionRepo struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewSessionRepository(ctx context.Context, rdb *redis.Client, ttl time.Duration, log *logger.Logger) (SessionRepository, error) {
	if rdb == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &SessionRepo{
		rdb: rdb,
		ttl: ttl,
		log: log.With("repository", "session"),
	}, nil
}

func (s *SessionRepo) CreateSession(ctx context.Context, userId string, role models.Role) (sessionId string, err error) {
	sessionId = uuid.NewString()
	key := sessionPrefix + sessionId
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "userId", userId, "role", string(role))
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		err = fail(s.log, "CreateSession", err)
		sessionId = ""
	}
	return
}

func (s *SessionRepo) DeleteSession(ctx context.Context, sessionId string) error {
	if err := s.rdb.Del(ctx, sessionPrefix+sessionId).Err(); err != nil {
		return fail(s.log, "DeleteSession", err)
	}
	return nil
}

func (s *SessionRepo) GetUserSessionInfo(ctx context.Context, sessionId string) (userId string, role models.Role, exists bool, err error) {
	val, err := s.rdb.HGetAll(ctx, sessionPrefix+sessionId).Result()
	if err != nil {
		err = fail(s.log, "GetUserSessionInfo", err)
		return
	}
	// HGETALL on a missing key yields an empty map
	if len(val) == 0 || val["userId"] == "" {
		return
	}
	userId = val["userId"]
	role = models.Role(val["role"])
	exists = true
	return
}

func (s *SessionRepo) RefreshSession(ctx context.Context, sessionId string) error {
	if err := s.rdb.Expire(ctx, sessionPrefix+sessionId, s.ttl).Err(); err != nil {
		return fail(s.log, "RefreshSession", err)
	}
	return nil
}
