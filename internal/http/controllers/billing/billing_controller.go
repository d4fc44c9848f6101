// Package billing contiene los controllers de checkout, portal y webhook.
package billing

import (
	"io"
	"net/http"

	dto "github.com/mbenitez01/citadel/internal/http/dto/billing"
	httperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/helpers"
	mw "github.com/mbenitez01/citadel/internal/http/middlewares"
	"github.com/mbenitez01/citadel/internal/http/services/billingsvc"
)

// SignatureHeader transporta la firma HMAC del webhook.
const SignatureHeader = "X-Webhook-Signature"

// Controller maneja los endpoints de billing.
type Controller struct {
	billing *billingsvc.Service
}

// NewController crea el controller de billing.
func NewController(b *billingsvc.Service) *Controller {
	return &Controller{billing: b}
}

// Checkout maneja POST /auth/billing/checkout-session (requiere sesión).
func (c *Controller) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.CheckoutRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.PlanID == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("plan_id es requerido"))
		return
	}

	da := mw.MustGetDataAccess(ctx)
	url, err := c.billing.Checkout(ctx, da, mw.GetUserID(ctx), req.PlanID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.SessionURLResponse{URL: url})
}

// Portal maneja POST /auth/billing/portal-session (requiere sesión).
func (c *Controller) Portal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	da := mw.MustGetDataAccess(ctx)
	url, err := c.billing.Portal(ctx, da, mw.GetUserID(ctx))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.SessionURLResponse{URL: url})
}

// Webhook maneja POST /auth/billing/webhook. El body crudo se necesita para
// verificar la firma antes de parsear.
func (c *Controller) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 256<<10))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("no se pudo leer el body"))
		return
	}

	da := mw.MustGetDataAccess(ctx)
	if err := c.billing.HandleWebhook(ctx, da, body, r.Header.Get(SignatureHeader)); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
