package middlewares

import (
	"errors"
	"net/http"

	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/helpers"
	"github.com/mbenitez01/citadel/internal/http/services/session"
)

// WithSessionAuth exige una sesión válida (Bearer o cookie) e inyecta
// session id y user id en el contexto. Debe correr después del middleware
// de tenant: la validación va contra la partición del tenant resuelto.
func WithSessionAuth(sessions *session.Service, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := helpers.SessionToken(r, cookieName)
			if raw == "" {
				apperrors.WriteError(w, apperrors.ErrUnauthorized)
				return
			}

			da := MustGetDataAccess(r.Context())
			sess, user, err := sessions.Validate(r.Context(), da, raw)
			if err != nil {
				apperrors.WriteError(w, mapSessionErr(err))
				return
			}

			ctx := WithSession(r.Context(), sess.ID, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithOptionalSession inyecta la sesión si el request trae una válida y
// deja pasar anónimo si no. Lo usa la emisión de CSRF: el binding debe ser
// la sesión cuando existe, el client id anónimo cuando no.
func WithOptionalSession(sessions *session.Service, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := helpers.SessionToken(r, cookieName); raw != "" {
				da := MustGetDataAccess(r.Context())
				if sess, user, err := sessions.Validate(r.Context(), da, raw); err == nil {
					r = r.WithContext(WithSession(r.Context(), sess.ID, user.ID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// mapSessionErr traduce errores del servicio de sesión a errores HTTP.
func mapSessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrExpired):
		return apperrors.ErrSessionExpired
	case errors.Is(err, session.ErrInvalidFormat),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrInvalidSecret):
		return apperrors.ErrSessionInvalid
	default:
		return err
	}
}
