// Package social contiene los controllers del flujo OAuth por tenant.
package social

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/helpers"
	mw "github.com/mbenitez01/citadel/internal/http/middlewares"
	socialsvc "github.com/mbenitez01/citadel/internal/http/services/social"
	"github.com/mbenitez01/citadel/internal/observability/logger"
)

// Controller maneja authorize y callback.
type Controller struct {
	social  *socialsvc.Service
	cookies helpers.CookieOpts
	// successPath es adonde aterriza el usuario tras un login social OK.
	successPath string
	// errorPath es la pantalla de login/error para fallas recuperables.
	errorPath string
}

// NewController crea el controller social.
func NewController(s *socialsvc.Service, cookies helpers.CookieOpts) *Controller {
	return &Controller{
		social:      s,
		cookies:     cookies,
		successPath: "/",
		errorPath:   "/login?error=oauth",
	}
}

// Authorize maneja GET /auth/oauth/{provider}/authorize: redirige al
// consent del provider con state firmado.
func (c *Controller) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t := mw.MustGetTenant(ctx)
	provider := chi.URLParam(r, "provider")

	url, err := c.social.Authorize(t, provider)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Callback maneja GET /auth/oauth/{provider}/callback. Un callback exitoso
// setea la cookie de sesión y redirige a la app; las fallas del provider
// son recuperables y redirigen a la pantalla de login.
func (c *Controller) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t := mw.MustGetTenant(ctx)
	da := mw.MustGetDataAccess(ctx)
	provider := chi.URLParam(r, "provider")

	q := r.URL.Query()
	result, err := c.social.Callback(ctx, da, t, provider, q.Get("code"), q.Get("state"))
	if err != nil {
		appErr := httperrors.FromError(err)
		logger.From(ctx).Warn("callback social falló",
			logger.Provider(provider),
			logger.Err(err),
		)
		// Errores del provider o del flujo: redirigir, no crashear.
		if appErr.HTTPStatus >= 500 && appErr.Code != httperrors.ErrUpstream.Code {
			httperrors.WriteError(w, appErr)
			return
		}
		http.Redirect(w, r, c.errorPath, http.StatusFound)
		return
	}

	helpers.SetSessionCookie(w, c.cookies, result.SessionToken)
	http.Redirect(w, r, c.successPath, http.StatusFound)
}
