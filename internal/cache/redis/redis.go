// Package redis implementa cache.Client sobre Redis.
package redis

import (
	"context"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/mbenitez01/citadel/internal/cache"
)

type client struct {
	c      *rdb.Client
	prefix string
}

// New crea un cache.Client sobre un Redis existente.
func New(c *rdb.Client, prefix string) cache.Client {
	return &client{c: c, prefix: prefix}
}

func (r *client) key(k string) string { return r.prefix + k }

func (r *client) Get(ctx context.Context, key string) (string, error) {
	v, err := r.c.Get(ctx, r.key(key)).Result()
	if errors.Is(err, rdb.Nil) {
		return "", cache.ErrNotFound
	}
	return v, err
}

func (r *client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.c.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *client) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, r.key(key)).Err()
}

func (r *client) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *client) Close() error {
	return r.c.Close()
}
