package tokens

import (
	"context"
	"net/url"
	"strings"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	"github.com/mbenitez01/citadel/internal/notifier"
	"github.com/mbenitez01/citadel/internal/observability/logger"
	"github.com/mbenitez01/citadel/internal/tenant"
)

// Flows orquesta los flujos de email: pedir reset y (re)enviar verificación.
// El envío es un colaborador: un intento acotado, la falla nunca revierte el
// estado local ya commiteado.
type Flows struct {
	tokens   *Service
	notifier notifier.Notifier
	// baseURL arma los links de los emails. Vacío usa https://<dominio>.
	baseURL string
}

// NewFlows crea los flujos de email.
func NewFlows(tokens *Service, n notifier.Notifier, baseURL string) *Flows {
	return &Flows{tokens: tokens, notifier: n, baseURL: baseURL}
}

func (f *Flows) linkFor(t *tenant.Tenant, path, plainToken string) string {
	base := f.baseURL
	if base == "" {
		base = "https://" + t.Domain
	}
	return strings.TrimRight(base, "/") + path + "?token=" + url.QueryEscape(plainToken)
}

// RequestPasswordReset emite y envía un token de reset si el email
// corresponde a un usuario. El caller responde 202 exista o no la cuenta:
// la respuesta no filtra existencia.
func (f *Flows) RequestPasswordReset(ctx context.Context, da repository.DataAccess, t *tenant.Tenant, email string) error {
	user, err := da.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}

	plain, err := f.tokens.Issue(ctx, da, user.ID, repository.EmailTokenPasswordReset)
	if err != nil {
		return err
	}

	link := f.linkFor(t, "/reset-password", plain)
	if err := f.notifier.SendPasswordReset(ctx, user.Email, link, f.tokens.resetTTL); err != nil {
		logger.From(ctx).Warn("no se pudo enviar email de reset",
			logger.UserID(user.ID),
			logger.Err(err),
		)
	}
	return nil
}

// SendVerification emite y envía un token de verificación para el usuario.
// Retorna si el email salió; la falla del notifier es secundaria.
func (f *Flows) SendVerification(ctx context.Context, da repository.DataAccess, t *tenant.Tenant, user *repository.User) (bool, error) {
	plain, err := f.tokens.Issue(ctx, da, user.ID, repository.EmailTokenVerification)
	if err != nil {
		return false, err
	}

	link := f.linkFor(t, "/verify-email", plain)
	if err := f.notifier.SendVerification(ctx, user.Email, link, f.tokens.verifyTTL); err != nil {
		logger.From(ctx).Warn("no se pudo enviar email de verificación",
			logger.UserID(user.ID),
			logger.Err(err),
		)
		return false, nil
	}
	return true, nil
}

// ResendVerification reenvía el email de verificación si el email existe y
// aún no está verificado. Siempre silencioso hacia afuera (202).
func (f *Flows) ResendVerification(ctx context.Context, da repository.DataAccess, t *tenant.Tenant, email string) error {
	user, err := da.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	_, err = f.SendVerification(ctx, da, t, user)
	return err
}
