package middlewares

import (
	"fmt"
	"net/http"

	"github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/observability/logger"
	"github.com/mbenitez01/citadel/internal/rate"
)

// WithRateLimit aplica un limitador fixed-window por IP del cliente sobre el
// endpoint que envuelve. Un fallo del backend del limitador deja pasar el
// request (fail-open): preferimos servir a cortar login por un Redis caído.
func WithRateLimit(l rate.Limiter, scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:%s", scope, clientIP(r))

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable",
					logger.Op("rate"),
					logger.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())))
				errors.WriteError(w, errors.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
