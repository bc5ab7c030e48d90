package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gdz-miniapp-backend/internal/features/solution/repository"
)

const keyPrefix = "solution:"

// Repository — redis-вариант хранилища одноразовых решений. TTL и
// вытеснение обеспечивает сам redis; одноразовость — GETDEL.
type Repository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRepository(client *redis.Client, ttl time.Duration) *Repository {
	return &Repository{client: client, ttl: ttl}
}

var _ repository.SolutionStore = (*Repository)(nil)

func (r *Repository) Put(ctx context.Context, id, content string) error {
	if err := r.client.Set(ctx, keyPrefix+id, content, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save solution: %w", err)
	}
	return nil
}

func (r *Repository) Take(ctx context.Context, id string) (string, error) {
	content, err := r.client.GetDel(ctx, keyPrefix+id).Result()
	if err == redis.Nil {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to take solution: %w", err)
	}
	if content == "" {
		return "", repository.ErrNotFound
	}
	return content, nil
}
