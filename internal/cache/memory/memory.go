// Package memory implementa cache.Client en memoria (go-cache).
// Solo para desarrollo y tests: el estado no se comparte entre workers.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mbenitez01/citadel/internal/cache"
)

type client struct {
	c *gocache.Cache
}

// New crea un cache en memoria con el TTL por defecto dado.
func New(defaultTTL time.Duration) cache.Client {
	return &client{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *client) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", cache.ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *client) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

func (m *client) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *client) Ping(context.Context) error { return nil }

func (m *client) Close() error { return nil }
