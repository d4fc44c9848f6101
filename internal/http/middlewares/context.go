package middlewares

import (
	"context"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	"github.com/mbenitez01/citadel/internal/tenant"
)

type ctxKey string

const (
	// ctxTenantKey guarda el *tenant.Tenant resuelto desde el host
	ctxTenantKey ctxKey = "tenant"
	// ctxDataKey guarda el DataAccess ligado a la partición del tenant
	ctxDataKey ctxKey = "data_access"
	// ctxUserIDKey guarda el user ID de la sesión validada
	ctxUserIDKey ctxKey = "user_id"
	// ctxSessionIDKey guarda el session ID de la sesión validada
	ctxSessionIDKey ctxKey = "session_id"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithTenant inyecta el tenant resuelto en el contexto. La resolución ocurre
// una sola vez por request y el valor es inmutable el resto del ciclo.
func WithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, ctxTenantKey, t)
}

// WithDataAccess inyecta los repositorios del tenant en el contexto.
func WithDataAccess(ctx context.Context, da repository.DataAccess) context.Context {
	return context.WithValue(ctx, ctxDataKey, da)
}

// WithSession inyecta la identidad de la sesión validada.
func WithSession(ctx context.Context, sessionID, userID string) context.Context {
	ctx = context.WithValue(ctx, ctxSessionIDKey, sessionID)
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetTenant obtiene el tenant del contexto.
// Retorna nil si el middleware de tenant no se aplicó.
func GetTenant(ctx context.Context) *tenant.Tenant {
	if v := ctx.Value(ctxTenantKey); v != nil {
		if t, ok := v.(*tenant.Tenant); ok {
			return t
		}
	}
	return nil
}

// MustGetTenant obtiene el tenant o hace panic.
// Usar solo en rutas donde el middleware de tenant SIEMPRE se aplica.
func MustGetTenant(ctx context.Context) *tenant.Tenant {
	t := GetTenant(ctx)
	if t == nil {
		panic("middlewares: no tenant in context")
	}
	return t
}

// GetDataAccess obtiene los repositorios del tenant del contexto.
func GetDataAccess(ctx context.Context) repository.DataAccess {
	if v := ctx.Value(ctxDataKey); v != nil {
		if da, ok := v.(repository.DataAccess); ok {
			return da
		}
	}
	return nil
}

// MustGetDataAccess obtiene el DataAccess o hace panic.
func MustGetDataAccess(ctx context.Context) repository.DataAccess {
	da := GetDataAccess(ctx)
	if da == nil {
		panic("middlewares: no data access in context")
	}
	return da
}

// GetUserID obtiene el user ID de la sesión. Vacío si no hay sesión.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(ctxUserIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetSessionID obtiene el session ID de la sesión. Vacío si no hay sesión.
func GetSessionID(ctx context.Context) string {
	if v := ctx.Value(ctxSessionIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
