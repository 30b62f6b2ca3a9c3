package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Storage is the durable key-value collaborator that persists a serialized
// cart item list per owner. Load returns nil data when no cart is stored.
type Storage interface {
	Load(ctx context.Context, ownerID string) ([]byte, error)
	Save(ctx context.Context, ownerID string, data []byte) error
	Delete(ctx context.Context, ownerID string) error
}

const cartKeyPrefix = "audiophile:cart:"

type redisStorage struct {
	client *redis.Client
}

// NewRedisStorage returns cart storage backed by Redis. Carts have no
// expiry; they live until cleared.
func NewRedisStorage(client *redis.Client) Storage {
	return &redisStorage{client: client}
}

func (s *redisStorage) Load(ctx context.Context, ownerID string) ([]byte, error) {
	data, err := s.client.Get(ctx, cartKeyPrefix+ownerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return data, nil
}

func (s *redisStorage) Save(ctx context.Context, ownerID string, data []byte) error {
	if err := s.client.Set(ctx, cartKeyPrefix+ownerID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *redisStorage) Delete(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, cartKeyPrefix+ownerID).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
