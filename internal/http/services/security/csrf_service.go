// Package security implementa el guard CSRF con patrón double-submit.
//
// El token vive en el cache compartido bajo csrf:<tenant>:<binding>, donde
// binding es el session id (o el client id anónimo de la cookie). El guard
// es una precondición pura: valida antes de que corra el handler que muta
// estado, no tiene efectos propios.
package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbenitez01/citadel/internal/cache"
	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	sectoken "github.com/mbenitez01/citadel/internal/security/token"
)

const csrfTokenBytes = 32

// CSRFService emite y valida tokens anti-forgery.
type CSRFService struct {
	cache cache.Client
	ttl   time.Duration
}

// NewCSRFService crea el guard con el TTL configurado.
func NewCSRFService(c cache.Client, ttl time.Duration) *CSRFService {
	return &CSRFService{cache: c, ttl: ttl}
}

func csrfKey(tenantDomain, binding string) string {
	return fmt.Sprintf("csrf:%s:%s", tenantDomain, binding)
}

// Issue genera un token nuevo ligado al binding y lo guarda con TTL.
// Emitir de nuevo reemplaza el token anterior: sólo el último emitido vale.
func (s *CSRFService) Issue(ctx context.Context, tenantDomain, binding string) (string, error) {
	token, err := sectoken.GenerateOpaque(csrfTokenBytes)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, csrfKey(tenantDomain, binding), token, s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Validate compara en tiempo constante contra el último token emitido para
// ese binding. Mismatch, expiración o ausencia rechazan por igual.
func (s *CSRFService) Validate(ctx context.Context, tenantDomain, binding, token string) error {
	if token == "" || binding == "" {
		return apperrors.ErrCSRFInvalid
	}
	stored, err := s.cache.Get(ctx, csrfKey(tenantDomain, binding))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return apperrors.ErrCSRFInvalid
		}
		return err
	}
	if !sectoken.ConstantTimeEquals(stored, token) {
		return apperrors.ErrCSRFInvalid
	}
	return nil
}
