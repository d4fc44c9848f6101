// Package tokens implementa los tokens de un solo uso con expiración:
// reset de password y verificación de email.
//
// El claim de un token es un UPDATE condicional en el store guardado por
// used_at IS NULL: bajo consumo concurrente exactamente un caller gana y el
// efecto asociado (cambio de password, flag de verificado) se aplica en la
// misma transacción, nunca dos veces.
package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/metrics"
	"github.com/mbenitez01/citadel/internal/observability/logger"
	"github.com/mbenitez01/citadel/internal/security/password"
	sectoken "github.com/mbenitez01/citadel/internal/security/token"
)

const tokenBytes = 32

// Service emite y consume tokens de email.
type Service struct {
	resetTTL  time.Duration
	verifyTTL time.Duration
}

// NewService crea el servicio con los TTL configurados
// (reset corto, verificación más largo).
func NewService(resetTTL, verifyTTL time.Duration) *Service {
	return &Service{resetTTL: resetTTL, verifyTTL: verifyTTL}
}

// TTL retorna la ventana de expiración para un kind.
func (s *Service) TTL(kind repository.EmailTokenKind) time.Duration {
	if kind == repository.EmailTokenPasswordReset {
		return s.resetTTL
	}
	return s.verifyTTL
}

// Issue genera un token opaco para el usuario y persiste sólo su hash.
// Retorna el token en claro para armar el link del email.
func (s *Service) Issue(ctx context.Context, da repository.DataAccess, userID string, kind repository.EmailTokenKind) (string, error) {
	plain, err := sectoken.GenerateOpaque(tokenBytes)
	if err != nil {
		return "", err
	}

	_, err = da.EmailTokens().Create(ctx, repository.CreateEmailTokenInput{
		UserID:    userID,
		Kind:      kind,
		TokenHash: sectoken.SHA256Base64URL(plain),
		TTL:       s.TTL(kind),
	})
	if err != nil {
		return "", err
	}
	return plain, nil
}

// ConfirmPasswordReset consume un token de reset y reemplaza el password del
// usuario en una transacción.
func (s *Service) ConfirmPasswordReset(ctx context.Context, da repository.DataAccess, plainToken, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.ErrPasswordTooWeak
	}
	newHash, err := password.Hash(password.Default, newPassword)
	if err != nil {
		return err
	}

	userID, err := da.EmailTokens().ConsumePasswordReset(ctx, sectoken.SHA256Base64URL(plainToken), newHash)
	if err != nil {
		metrics.TokensConsumed.WithLabelValues(string(repository.EmailTokenPasswordReset), consumeResult(err)).Inc()
		return mapConsumeErr(err)
	}

	metrics.TokensConsumed.WithLabelValues(string(repository.EmailTokenPasswordReset), "ok").Inc()
	logger.From(ctx).Info("password restablecido",
		logger.UserID(userID),
		logger.TokenKind(string(repository.EmailTokenPasswordReset)),
	)
	return nil
}

// ConfirmVerification consume un token de verificación y marca el email del
// usuario como verificado en una transacción.
func (s *Service) ConfirmVerification(ctx context.Context, da repository.DataAccess, plainToken string) error {
	userID, err := da.EmailTokens().ConsumeVerification(ctx, sectoken.SHA256Base64URL(plainToken))
	if err != nil {
		metrics.TokensConsumed.WithLabelValues(string(repository.EmailTokenVerification), consumeResult(err)).Inc()
		return mapConsumeErr(err)
	}

	metrics.TokensConsumed.WithLabelValues(string(repository.EmailTokenVerification), "ok").Inc()
	logger.From(ctx).Info("email verificado",
		logger.UserID(userID),
		logger.TokenKind(string(repository.EmailTokenVerification)),
	)
	return nil
}

func mapConsumeErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrTokenUsed):
		return apperrors.ErrTokenAlreadyUsed
	case errors.Is(err, repository.ErrTokenExpired):
		return apperrors.ErrTokenExpired
	case repository.IsNotFound(err):
		return apperrors.ErrTokenInvalid
	default:
		return err
	}
}

func consumeResult(err error) string {
	switch {
	case errors.Is(err, repository.ErrTokenUsed):
		return "already_used"
	case errors.Is(err, repository.ErrTokenExpired):
		return "expired"
	case repository.IsNotFound(err):
		return "invalid"
	default:
		return "error"
	}
}
