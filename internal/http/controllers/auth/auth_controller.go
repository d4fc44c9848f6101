// Package auth contiene los controllers de signup, login, logout y sesión.
package auth

import (
	"net/http"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	dto "github.com/mbenitez01/citadel/internal/http/dto/auth"
	httperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/helpers"
	mw "github.com/mbenitez01/citadel/internal/http/middlewares"
	authsvc "github.com/mbenitez01/citadel/internal/http/services/auth"
	sessionsvc "github.com/mbenitez01/citadel/internal/http/services/session"
	"github.com/mbenitez01/citadel/internal/observability/logger"
)

// Controller maneja los endpoints de credenciales y sesión.
type Controller struct {
	auth     *authsvc.Service
	sessions *sessionsvc.Service
	cookies  helpers.CookieOpts
}

// NewController crea el controller de auth.
func NewController(auth *authsvc.Service, sessions *sessionsvc.Service, cookies helpers.CookieOpts) *Controller {
	return &Controller{auth: auth, sessions: sessions, cookies: cookies}
}

// Signup maneja POST /auth/signup.
func (c *Controller) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.SignupRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email y password son requeridos"))
		return
	}

	t := mw.MustGetTenant(ctx)
	da := mw.MustGetDataAccess(ctx)

	result, err := c.auth.Signup(ctx, da, t, authsvc.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.SignupResponse{
		UserID:        result.User.ID,
		Email:         result.User.Email,
		EmailVerified: result.User.EmailVerified,
		EmailSent:     result.EmailSent,
	})
}

// Login maneja POST /auth/login. Setea la cookie de sesión y devuelve el
// token también en el body para clientes Bearer.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email y password son requeridos"))
		return
	}

	da := mw.MustGetDataAccess(ctx)

	user, err := c.auth.Login(ctx, da, req.Email, req.Password)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	token, err := c.sessions.Create(ctx, da, user.ID)
	if err != nil {
		logger.From(ctx).Error("no se pudo crear la sesión", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	helpers.SetSessionCookie(w, c.cookies, token)
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		SessionToken: token,
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
	})
}

// Logout maneja POST /auth/logout. La ruta exige sesión válida; revocar es
// idempotente y aun si el revoke falla responde 204 y limpia la cookie.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if sid := mw.GetSessionID(ctx); sid != "" {
		da := mw.MustGetDataAccess(ctx)
		if err := c.sessions.Revoke(ctx, da, sid); err != nil {
			logger.From(ctx).Warn("revoke de sesión falló", logger.SessionID(sid), logger.Err(err))
		}
	}

	helpers.ClearSessionCookie(w, c.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// Session maneja GET /auth/session: valida la sesión del request y devuelve
// el usuario junto con su estado de suscripción.
func (c *Controller) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	da := mw.MustGetDataAccess(ctx)

	user, err := da.Users().GetByID(ctx, mw.GetUserID(ctx))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrSessionInvalid)
		return
	}

	subStatus := string(repository.SubscriptionFree)
	if sub, err := da.Subscriptions().GetByUserID(ctx, user.ID); err == nil {
		subStatus = string(sub.Status)
	}

	helpers.WriteJSON(w, http.StatusOK, dto.SessionResponse{
		UserID:        user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		EmailVerified: user.EmailVerified,
		Subscription:  subStatus,
	})
}
