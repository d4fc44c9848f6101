// Package repository define las entidades del dominio y las interfaces de
// acceso a datos. Cada repositorio opera sobre la partición de UN tenant:
// la instancia se construye ya ligada al prefijo de storage del tenant
// resuelto, por lo que ninguna query puede cruzar tenants.
package repository

import (
	"context"
	"time"
)

// User representa un usuario de un tenant.
type User struct {
	ID             string
	Email          string
	PasswordHash   string // PHC argon2id; vacío para usuarios creados solo por OAuth
	FirstName      string
	LastName       string
	EmailVerified  bool
	FailedAttempts int
	LockedUntil    *time.Time // nil XOR instante futuro: un solo estado de lockout a la vez
	CreatedAt      time.Time
}

// Locked indica si el usuario está bloqueado en el instante dado.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	EmailVerified bool
}

// UserRepository define operaciones sobre usuarios de un tenant.
type UserRepository interface {
	// Create crea un usuario. Retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// GetByEmail busca un usuario por email. Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, userID string) (*User, error)

	// RecordFailedAttempt incrementa el contador de intentos fallidos en un
	// solo UPDATE condicional. Si el contador alcanza threshold, el mismo
	// UPDATE fija locked_until = now + lockFor. Retorna el contador y el
	// lockout resultantes.
	RecordFailedAttempt(ctx context.Context, userID string, threshold int, lockFor time.Duration) (attempts int, lockedUntil *time.Time, err error)

	// ClearLockout resetea el contador a 0 y limpia locked_until.
	ClearLockout(ctx context.Context, userID string) error

	// SetEmailVerified marca el email del usuario como verificado.
	SetEmailVerified(ctx context.Context, userID string) error

	// UpdatePasswordHash reemplaza el hash de password del usuario.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}
