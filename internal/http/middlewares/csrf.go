package middlewares

import (
	"net/http"

	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	securitysvc "github.com/mbenitez01/citadel/internal/http/services/security"
)

// ClientIDCookie es la cookie de binding anónimo para CSRF sin sesión.
const ClientIDCookie = "cid"

// csrfBinding resuelve a qué contexto está ligado el token: la sesión si
// hay una, si no el client id anónimo de la cookie.
func csrfBinding(r *http.Request) string {
	if sid := GetSessionID(r.Context()); sid != "" {
		return sid
	}
	if c, err := r.Cookie(ClientIDCookie); err == nil {
		return c.Value
	}
	return ""
}

// WithCSRF es el gate anti-forgery para métodos que mutan estado. Valida el
// header X-CSRF-Token contra el último token emitido para el binding antes
// de que corra el handler. Precondición pura, sin efectos propios.
func WithCSRF(csrf *securitysvc.CSRFService) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			t := MustGetTenant(r.Context())
			token := r.Header.Get("X-CSRF-Token")

			if err := csrf.Validate(r.Context(), t.Domain, csrfBinding(r), token); err != nil {
				apperrors.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
