// Package security contiene el controller de emisión de tokens CSRF.
package security

import (
	"net/http"

	dto "github.com/mbenitez01/citadel/internal/http/dto/security"
	httperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/helpers"
	mw "github.com/mbenitez01/citadel/internal/http/middlewares"
	securitysvc "github.com/mbenitez01/citadel/internal/http/services/security"
	sectoken "github.com/mbenitez01/citadel/internal/security/token"
)

// Controller maneja GET /auth/csrf-token.
type Controller struct {
	csrf    *securitysvc.CSRFService
	cookies helpers.CookieOpts
}

// NewController crea el controller de CSRF.
func NewController(csrf *securitysvc.CSRFService, cookies helpers.CookieOpts) *Controller {
	return &Controller{csrf: csrf, cookies: cookies}
}

// Token emite un token CSRF ligado a la sesión actual, o a un client id
// anónimo si no hay sesión (la cookie cid se crea acá si falta). El token
// viaja en el JSON y en la cookie del double-submit.
func (c *Controller) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t := mw.MustGetTenant(ctx)

	binding := mw.GetSessionID(ctx)
	if binding == "" {
		if cookie, err := r.Cookie(mw.ClientIDCookie); err == nil && cookie.Value != "" {
			binding = cookie.Value
		} else {
			cid, err := sectoken.GenerateOpaque(16)
			if err != nil {
				httperrors.WriteError(w, err)
				return
			}
			binding = cid
			http.SetCookie(w, &http.Cookie{
				Name:     mw.ClientIDCookie,
				Value:    cid,
				Path:     "/",
				HttpOnly: true,
				Secure:   c.cookies.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}

	token, err := c.csrf.Issue(ctx, t.Domain, binding)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	helpers.SetCSRFCookie(w, c.cookies, token)
	helpers.WriteJSON(w, http.StatusOK, dto.CSRFTokenResponse{CSRFToken: token})
}
