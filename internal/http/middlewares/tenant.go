package middlewares

import (
	"net/http"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	"github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/tenant"
)

// StoreProvider devuelve los repositorios ligados al prefijo de storage de
// un tenant ya validado por el registro.
type StoreProvider func(prefix string) repository.DataAccess

// WithTenantResolution resuelve el tenant desde el host del request e inyecta
// tanto el tenant como su DataAccess en el contexto. La resolución ocurre una
// única vez por request; componentes posteriores sólo leen del contexto.
// Host desconocido corta el request con TENANT_NOT_FOUND.
func WithTenantResolution(reg *tenant.Registry, stores StoreProvider) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, err := reg.ResolveHost(r.Host)
			if err != nil {
				errors.WriteError(w, errors.ErrTenantNotFound)
				return
			}

			ctx := WithTenant(r.Context(), t)
			ctx = WithDataAccess(ctx, stores(t.Prefix))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
