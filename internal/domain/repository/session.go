package repository

import (
	"context"
	"time"
)

// Session representa una sesión persistida. Solo se guarda el hash del
// secreto: el plaintext no es recuperable desde el registro.
type Session struct {
	ID         string
	UserID     string
	SecretHash string
	CreatedAt  time.Time
}

// CreateSessionInput contiene los datos para persistir una sesión nueva.
type CreateSessionInput struct {
	ID         string
	UserID     string
	SecretHash string
}

// SessionRepository define operaciones sobre sesiones de un tenant.
type SessionRepository interface {
	// Create persiste una sesión nueva.
	Create(ctx context.Context, input CreateSessionInput) (*Session, error)

	// Get obtiene una sesión por ID. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete elimina una sesión. Idempotente: borrar dos veces no es error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteExpired elimina sesiones creadas antes de cutoff.
	// Retorna el número de sesiones eliminadas.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}
