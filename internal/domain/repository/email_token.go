package repository

import (
	"context"
	"time"
)

// EmailTokenKind indica el propósito de un token de email.
type EmailTokenKind string

const (
	EmailTokenPasswordReset EmailTokenKind = "password_reset"
	EmailTokenVerification  EmailTokenKind = "email_verification"
)

// EmailToken representa un token temporal de un solo uso.
// used_at transiciona null → set exactamente una vez; el claim es un
// UPDATE condicional en el store, nunca un lock a nivel de aplicación.
type EmailToken struct {
	ID        string
	UserID    string
	Kind      EmailTokenKind
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// CreateEmailTokenInput contiene los datos para crear un token de email.
type CreateEmailTokenInput struct {
	UserID    string
	Kind      EmailTokenKind
	TokenHash string
	TTL       time.Duration
}

// EmailTokenRepository define operaciones sobre tokens de email de un tenant.
type EmailTokenRepository interface {
	// Create persiste un token nuevo, sin usar.
	Create(ctx context.Context, input CreateEmailTokenInput) (*EmailToken, error)

	// ConsumePasswordReset reclama el token y reemplaza el password hash del
	// usuario en UNA transacción. El claim está guardado por used_at IS NULL:
	// bajo consumo concurrente exactamente un caller gana.
	// Errores: ErrNotFound (no existe), ErrTokenUsed (ya consumido),
	// ErrTokenExpired (venció sin usar).
	ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string) (userID string, err error)

	// ConsumeVerification reclama el token y marca el email del usuario como
	// verificado en UNA transacción. Mismas garantías y errores que
	// ConsumePasswordReset.
	ConsumeVerification(ctx context.Context, tokenHash string) (userID string, err error)

	// DeleteExpired elimina tokens vencidos o ya usados.
	DeleteExpired(ctx context.Context) (int, error)
}
