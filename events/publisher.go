package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const Channel = "storefront-events"

const (
	OrderPlaced          = "order.placed"
	ProductRatingUpdated = "product.rating_updated"
)

type Event struct {
	Name       string    `json:"name"`
	EntityId   string    `json:"entityId"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, name string, entityId string, payload any) error
}

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, name string, entityId string, payload any) error {
	data, err := json.Marshal(Event{
		Name:       name,
		EntityId:   entityId,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel, data).Err()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }
