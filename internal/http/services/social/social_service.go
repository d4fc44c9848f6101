// Package social implementa la federación OAuth por tenant: authorize,
// callback y resolución de identidades externas a usuarios locales.
package social

import (
	"context"
	"errors"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/services/session"
	"github.com/mbenitez01/citadel/internal/metrics"
	"github.com/mbenitez01/citadel/internal/oauth"
	"github.com/mbenitez01/citadel/internal/observability/logger"
	"github.com/mbenitez01/citadel/internal/tenant"
)

// Service orquesta el flujo social completo.
type Service struct {
	signer   *oauth.StateSigner
	sessions *session.Service
}

// NewService crea el servicio social.
func NewService(signer *oauth.StateSigner, sessions *session.Service) *Service {
	return &Service{signer: signer, sessions: sessions}
}

// Authorize construye la URL de consentimiento del provider para el tenant,
// con state firmado (tenant, provider, nonce, expiración corta).
func (s *Service) Authorize(t *tenant.Tenant, providerName string) (string, error) {
	cfg, ok := t.Provider(providerName)
	if !ok {
		return "", apperrors.ErrProviderNotFound
	}
	p, err := oauth.New(cfg)
	if err != nil {
		return "", apperrors.ErrProviderNotFound.WithCause(err)
	}

	state, err := s.signer.Sign(t.Domain, providerName)
	if err != nil {
		return "", err
	}
	return p.AuthorizeURL(state), nil
}

// CallbackResult es el resultado de un callback exitoso.
type CallbackResult struct {
	SessionToken string
	UserID       string
	IsNewUser    bool
}

// Callback cierra el flujo: verifica el state, intercambia el code por la
// identidad externa y resuelve contra el storage del tenant.
//
// Orden de resolución: identidad existente → login; usuario local con el
// mismo email → link + login; ninguno → crear usuario + identidad + login.
// Repetir un callback para una identidad ya vinculada jamás duplica filas.
// Una falla del provider (denegación, code vencido, red) termina el flujo
// con UPSTREAM_ERROR, nunca con un crash.
func (s *Service) Callback(ctx context.Context, da repository.DataAccess, t *tenant.Tenant, providerName, code, state string) (*CallbackResult, error) {
	cfg, ok := t.Provider(providerName)
	if !ok {
		return nil, apperrors.ErrProviderNotFound
	}

	if err := s.signer.Verify(state, t.Domain, providerName); err != nil {
		metrics.OAuthCallbacks.WithLabelValues(providerName, "bad_state").Inc()
		return nil, apperrors.ErrForbidden.WithDetail("state inválido o expirado").WithCause(err)
	}
	if code == "" {
		metrics.OAuthCallbacks.WithLabelValues(providerName, "denied").Inc()
		return nil, apperrors.ErrBadRequest.WithDetail("falta el parámetro code")
	}

	p, err := oauth.New(cfg)
	if err != nil {
		return nil, apperrors.ErrProviderNotFound.WithCause(err)
	}

	ext, err := p.Exchange(ctx, code)
	if err != nil {
		metrics.OAuthCallbacks.WithLabelValues(providerName, "upstream_error").Inc()
		if errors.Is(err, oauth.ErrUpstream) {
			return nil, apperrors.ErrUpstream.WithCause(err)
		}
		return nil, err
	}

	userID, isNew, err := da.Identities().Resolve(ctx, repository.ResolveIdentityInput{
		Provider:       providerName,
		ProviderUserID: ext.ProviderUserID,
		Email:          ext.Email,
		FirstName:      ext.FirstName,
		LastName:       ext.LastName,
		EmailVerified:  ext.EmailVerified,
	})
	if err != nil {
		metrics.OAuthCallbacks.WithLabelValues(providerName, "resolve_error").Inc()
		return nil, err
	}

	token, err := s.sessions.Create(ctx, da, userID)
	if err != nil {
		return nil, err
	}

	metrics.OAuthCallbacks.WithLabelValues(providerName, "ok").Inc()
	logger.From(ctx).Info("login social completado",
		logger.Provider(providerName),
		logger.UserID(userID),
		logger.Any("new_user", isNew),
	)

	return &CallbackResult{SessionToken: token, UserID: userID, IsNewUser: isNew}, nil
}
