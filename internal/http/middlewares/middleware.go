// Package middlewares contiene los decoradores HTTP del servicio: tenant,
// sesión, CSRF, rate limit, logging y cabeceras.
package middlewares

import "net/http"

// Middleware es un decorador de http.Handler. El router los compone con
// chi.Router.Use / With.
type Middleware func(http.Handler) http.Handler
