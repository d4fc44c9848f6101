package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbenitez01/citadel/internal/domain/repository"
)

// userRepo implementa repository.UserRepository.
type userRepo struct {
	pool   *pgxpool.Pool
	schema string
}

const userColumns = `id, email, password_hash, first_name, last_name,
	email_verified, failed_attempts, locked_until, created_at`

func (r *userRepo) table() string { return r.schema + ".app_user" }

// Create inserta un usuario nuevo. Email duplicado → ErrConflict.
func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	query := `
		INSERT INTO ` + r.table() + ` (id, email, password_hash, first_name, last_name, email_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + userColumns

	u := repository.User{}
	err := r.pool.QueryRow(ctx, query,
		uuid.NewString(), input.Email, input.PasswordHash,
		input.FirstName, input.LastName, input.EmailVerified,
	).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.EmailVerified, &u.FailedAttempts, &u.LockedUntil, &u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// GetByEmail busca un usuario por email dentro del schema del tenant.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + r.table() + ` WHERE email = $1`
	return r.scanOne(ctx, query, email)
}

// GetByID busca un usuario por ID.
func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + r.table() + ` WHERE id = $1`
	return r.scanOne(ctx, query, userID)
}

func (r *userRepo) scanOne(ctx context.Context, query string, arg any) (*repository.User, error) {
	u := repository.User{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.EmailVerified, &u.FailedAttempts, &u.LockedUntil, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// RecordFailedAttempt incrementa el contador y, si el mismo incremento
// alcanza el umbral, fija locked_until en el MISMO update. Un solo statement:
// dos workers concurrentes nunca producen transiciones parciales.
func (r *userRepo) RecordFailedAttempt(ctx context.Context, userID string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	query := `
		UPDATE ` + r.table() + `
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE
		        WHEN failed_attempts + 1 >= $2 THEN NOW() + $3
		        ELSE locked_until
		    END
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`
	var attempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, query, userID, threshold, lockFor).Scan(&attempts, &lockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, repository.ErrNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("record failed attempt: %w", err)
	}
	return attempts, lockedUntil, nil
}

// ClearLockout resetea el contador y limpia el lockout tras un login correcto.
func (r *userRepo) ClearLockout(ctx context.Context, userID string) error {
	query := `UPDATE ` + r.table() + ` SET failed_attempts = 0, locked_until = NULL WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

// SetEmailVerified marca el email como verificado.
func (r *userRepo) SetEmailVerified(ctx context.Context, userID string) error {
	query := `UPDATE ` + r.table() + ` SET email_verified = TRUE WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdatePasswordHash reemplaza el hash del password.
func (r *userRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	query := `UPDATE ` + r.table() + ` SET password_hash = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, newHash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
