package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbenitez01/citadel/internal/domain/repository"
)

// identityRepo implementa repository.IdentityRepository.
type identityRepo struct {
	pool   *pgxpool.Pool
	schema string
}

func (r *identityRepo) table() string { return r.schema + ".oauth_identity" }

// GetByProvider busca una identidad por (provider, provider_user_id).
func (r *identityRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (*repository.OAuthIdentity, error) {
	query := `
		SELECT id, provider, provider_user_id, user_id, created_at
		FROM ` + r.table() + `
		WHERE provider = $1 AND provider_user_id = $2
	`
	id := repository.OAuthIdentity{}
	err := r.pool.QueryRow(ctx, query, provider, providerUserID).Scan(
		&id.ID, &id.Provider, &id.ProviderUserID, &id.UserID, &id.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &id, nil
}

// Resolve aplica el orden de resolución del callback en una transacción:
// identidad existente → usuario por email → usuario nuevo. El índice único
// (provider, provider_user_id) hace inofensivo un callback repetido.
func (r *identityRepo) Resolve(ctx context.Context, input repository.ResolveIdentityInput) (string, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", false, fmt.Errorf("resolve identity: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// (a) identidad existente → login directo.
	var userID string
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM `+r.table()+` WHERE provider = $1 AND provider_user_id = $2`,
		input.Provider, input.ProviderUserID,
	).Scan(&userID)
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return "", false, fmt.Errorf("resolve identity: commit: %w", err)
		}
		return userID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, fmt.Errorf("resolve identity: lookup: %w", err)
	}

	// (b) usuario local con el mismo email → vincular.
	isNew := false
	err = tx.QueryRow(ctx,
		`SELECT id FROM `+r.schema+`.app_user WHERE email = $1`,
		input.Email,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		// (c) crear usuario nuevo. Sin password: la cuenta nace federada.
		userID = uuid.NewString()
		isNew = true
		_, err = tx.Exec(ctx, `
			INSERT INTO `+r.schema+`.app_user (id, email, password_hash, first_name, last_name, email_verified, created_at)
			VALUES ($1, $2, '', $3, $4, $5, NOW())`,
			userID, input.Email, input.FirstName, input.LastName, input.EmailVerified,
		)
		if err != nil {
			return "", false, fmt.Errorf("resolve identity: create user: %w", err)
		}
	} else if err != nil {
		return "", false, fmt.Errorf("resolve identity: user lookup: %w", err)
	}

	// Vincular identidad. ON CONFLICT cubre la carrera entre dos callbacks
	// simultáneos con el mismo code re-emitido.
	_, err = tx.Exec(ctx, `
		INSERT INTO `+r.table()+` (id, provider, provider_user_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (provider, provider_user_id) DO NOTHING`,
		uuid.NewString(), input.Provider, input.ProviderUserID, userID,
	)
	if err != nil {
		return "", false, fmt.Errorf("resolve identity: link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, fmt.Errorf("resolve identity: commit: %w", err)
	}
	return userID, isNew, nil
}
