// Package health expone el endpoint de liveness/readiness.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbenitez01/citadel/internal/cache"
	"github.com/mbenitez01/citadel/internal/http/helpers"
)

// Controller maneja GET /healthz.
type Controller struct {
	pool  *pgxpool.Pool
	cache cache.Client
}

// NewController crea el controller de health.
func NewController(pool *pgxpool.Pool, c cache.Client) *Controller {
	return &Controller{pool: pool, cache: c}
}

type status struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Cache  string `json:"cache"`
}

// Healthz verifica storage y cache con un deadline corto.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st := status{Status: "ok", Store: "ok", Cache: "ok"}
	code := http.StatusOK

	if c.pool != nil {
		if err := c.pool.Ping(ctx); err != nil {
			st.Status, st.Store = "degraded", "down"
			code = http.StatusServiceUnavailable
		}
	}
	if err := c.cache.Ping(ctx); err != nil {
		st.Status, st.Cache = "degraded", "down"
		code = http.StatusServiceUnavailable
	}

	helpers.WriteJSON(w, code, st)
}
