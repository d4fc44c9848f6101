package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbenitez01/citadel/internal/domain/repository"
)

// sessionRepo implementa repository.SessionRepository.
type sessionRepo struct {
	pool   *pgxpool.Pool
	schema string
}

func (r *sessionRepo) table() string { return r.schema + ".session" }

// Create inserta una sesión nueva. Solo el hash del secreto llega acá.
func (r *sessionRepo) Create(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	query := `
		INSERT INTO ` + r.table() + ` (id, user_id, secret_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, secret_hash, created_at
	`
	s := repository.Session{}
	err := r.pool.QueryRow(ctx, query, input.ID, input.UserID, input.SecretHash).Scan(
		&s.ID, &s.UserID, &s.SecretHash, &s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &s, nil
}

// Get obtiene una sesión por ID.
func (r *sessionRepo) Get(ctx context.Context, sessionID string) (*repository.Session, error) {
	query := `SELECT id, user_id, secret_hash, created_at FROM ` + r.table() + ` WHERE id = $1`
	s := repository.Session{}
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&s.ID, &s.UserID, &s.SecretHash, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// Delete elimina una sesión. Borrar una sesión inexistente no es error.
func (r *sessionRepo) Delete(ctx context.Context, sessionID string) error {
	query := `DELETE FROM ` + r.table() + ` WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired elimina sesiones creadas antes de cutoff.
func (r *sessionRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM ` + r.table() + ` WHERE created_at < $1`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
