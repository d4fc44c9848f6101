// Package email contiene los controllers de los flujos de email:
// reset de password y verificación.
package email

import (
	"net/http"

	dto "github.com/mbenitez01/citadel/internal/http/dto/email"
	httperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/helpers"
	mw "github.com/mbenitez01/citadel/internal/http/middlewares"
	"github.com/mbenitez01/citadel/internal/http/services/tokens"
	"github.com/mbenitez01/citadel/internal/observability/logger"
)

// Controller maneja los endpoints de tokens de email.
type Controller struct {
	tokens *tokens.Service
	flows  *tokens.Flows
}

// NewController crea el controller de flujos de email.
func NewController(t *tokens.Service, f *tokens.Flows) *Controller {
	return &Controller{tokens: t, flows: f}
}

// accepted responde 202 sin revelar si la cuenta existe.
func accepted(w http.ResponseWriter) {
	helpers.WriteJSON(w, http.StatusAccepted, dto.AcceptedResponse{Status: "accepted"})
}

// RequestReset maneja POST /auth/password-reset. Siempre 202.
func (c *Controller) RequestReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ResetRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email es requerido"))
		return
	}

	t := mw.MustGetTenant(ctx)
	da := mw.MustGetDataAccess(ctx)

	if err := c.flows.RequestPasswordReset(ctx, da, t, req.Email); err != nil {
		// La emisión falló tras encontrar al usuario. No filtramos el motivo.
		logger.From(ctx).Error("password-reset request falló", logger.Err(err))
	}
	accepted(w)
}

// ConfirmReset maneja POST /auth/password-reset/confirm.
func (c *Controller) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ResetConfirmRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token y new_password son requeridos"))
		return
	}

	da := mw.MustGetDataAccess(ctx)
	if err := c.tokens.ConfirmPasswordReset(ctx, da, req.Token, req.NewPassword); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Verify maneja POST /auth/email/verify.
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.VerifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token es requerido"))
		return
	}

	da := mw.MustGetDataAccess(ctx)
	if err := c.tokens.ConfirmVerification(ctx, da, req.Token); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Resend maneja POST /auth/email/resend-verification. Siempre 202.
func (c *Controller) Resend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ResendRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email es requerido"))
		return
	}

	t := mw.MustGetTenant(ctx)
	da := mw.MustGetDataAccess(ctx)

	if err := c.flows.ResendVerification(ctx, da, t, req.Email); err != nil {
		logger.From(ctx).Error("resend de verificación falló", logger.Err(err))
	}
	accepted(w)
}
