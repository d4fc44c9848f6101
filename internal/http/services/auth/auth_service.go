// Package auth implementa signup y login con lockout por fuerza bruta.
//
// Las respuestas de "usuario inexistente" y "password incorrecto" son
// idénticas: INVALID_CREDENTIALS, para no filtrar existencia de cuentas.
// El lockout se reporta como ACCOUNT_LOCKED porque quien lo disparó ya
// conoce la existencia de la cuenta.
package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/services/tokens"
	"github.com/mbenitez01/citadel/internal/metrics"
	"github.com/mbenitez01/citadel/internal/observability/logger"
	"github.com/mbenitez01/citadel/internal/security/password"
	"github.com/mbenitez01/citadel/internal/tenant"
)

const minPasswordLen = 8

// Service implementa el manejo de credenciales.
type Service struct {
	flows            *tokens.Flows
	lockoutThreshold int
	lockoutWindow    time.Duration
}

// NewService crea el servicio de credenciales.
func NewService(flows *tokens.Flows, lockoutThreshold int, lockoutWindow time.Duration) *Service {
	return &Service{
		flows:            flows,
		lockoutThreshold: lockoutThreshold,
		lockoutWindow:    lockoutWindow,
	}
}

// SignupInput son los datos de registro.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignupResult es el resultado del registro. EmailSent es el estado
// secundario del colaborador notifier: su falla no aborta el signup.
type SignupResult struct {
	User      *repository.User
	EmailSent bool
}

// Signup registra un usuario nuevo y dispara el email de verificación.
func (s *Service) Signup(ctx context.Context, da repository.DataAccess, t *tenant.Tenant, in SignupInput) (*SignupResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperrors.ErrInvalidFormat.WithDetail("email inválido")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperrors.ErrPasswordTooWeak
	}

	hash, err := password.Hash(password.Default, in.Password)
	if err != nil {
		return nil, err
	}

	user, err := da.Users().Create(ctx, repository.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
	if err != nil {
		if repository.IsConflict(err) {
			return nil, apperrors.ErrEmailAlreadyInUse
		}
		return nil, err
	}

	metrics.Signups.Inc()

	sent, err := s.flows.SendVerification(ctx, da, t, user)
	if err != nil {
		// El usuario ya existe: la falla al emitir el token es secundaria.
		logger.From(ctx).Warn("no se pudo emitir token de verificación",
			logger.UserID(user.ID),
			logger.Err(err),
		)
		sent = false
	}

	return &SignupResult{User: user, EmailSent: sent}, nil
}

// Login verifica credenciales aplicando la máquina de estados de lockout.
//
// Orden: lookup, chequeo de lockout (antes de comparar el password), después
// comparación argon2id. Un mismatch incrementa el contador de forma atómica
// en el store; el intento que alcanza el umbral fija lockout_until en el
// mismo UPDATE. Un match después de vencida la ventana limpia contador y
// lockout: el reloj termina el lock, no hay unlock explícito.
func (s *Service) Login(ctx context.Context, da repository.DataAccess, email, plainPassword string) (*repository.User, error) {
	user, err := da.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.Logins.WithLabelValues("invalid").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	if user.Locked(now) {
		metrics.Logins.WithLabelValues("locked").Inc()
		return nil, apperrors.ErrAccountLocked
	}

	if user.PasswordHash == "" || !password.Verify(plainPassword, user.PasswordHash) {
		attempts, lockedUntil, rerr := da.Users().RecordFailedAttempt(ctx, user.ID, s.lockoutThreshold, s.lockoutWindow)
		if rerr != nil {
			return nil, rerr
		}
		if lockedUntil != nil {
			metrics.Lockouts.Inc()
			logger.From(ctx).Warn("cuenta bloqueada por intentos fallidos",
				logger.UserID(user.ID),
				logger.Int("attempts", attempts),
			)
		}
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		if cerr := da.Users().ClearLockout(ctx, user.ID); cerr != nil {
			return nil, cerr
		}
		user.FailedAttempts = 0
		user.LockedUntil = nil
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	return user, nil
}

func normalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}
