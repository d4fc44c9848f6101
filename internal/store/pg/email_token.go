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

// emailTokenRepo implementa repository.EmailTokenRepository.
// Usa dos tablas con la misma forma: password_reset_token y
// email_verification_token, cada una con su ventana de expiración.
type emailTokenRepo struct {
	pool   *pgxpool.Pool
	schema string
}

func (r *emailTokenRepo) tableFor(kind repository.EmailTokenKind) string {
	if kind == repository.EmailTokenPasswordReset {
		return r.schema + ".password_reset_token"
	}
	return r.schema + ".email_verification_token"
}

// Create persiste un token nuevo, sin usar.
func (r *emailTokenRepo) Create(ctx context.Context, input repository.CreateEmailTokenInput) (*repository.EmailToken, error) {
	query := `
		INSERT INTO ` + r.tableFor(input.Kind) + ` (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, NOW() + $4, NOW())
		RETURNING id, user_id, token_hash, expires_at, used_at, created_at
	`
	t := repository.EmailToken{Kind: input.Kind}
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), input.UserID, input.TokenHash, input.TTL).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create %s token: %w", input.Kind, err)
	}
	return &t, nil
}

// ConsumePasswordReset reclama el token y aplica el reemplazo de password en
// una sola transacción. El claim (used_at IS NULL, expires_at > NOW()) decide
// un único ganador bajo concurrencia; los perdedores ven ErrTokenUsed.
func (r *emailTokenRepo) ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string) (string, error) {
	return r.consume(ctx, repository.EmailTokenPasswordReset, tokenHash, func(tx pgx.Tx, userID string) error {
		_, err := tx.Exec(ctx,
			`UPDATE `+r.schema+`.app_user SET password_hash = $2 WHERE id = $1`,
			userID, newPasswordHash)
		return err
	})
}

// ConsumeVerification reclama el token y marca el email como verificado,
// con las mismas garantías que ConsumePasswordReset.
func (r *emailTokenRepo) ConsumeVerification(ctx context.Context, tokenHash string) (string, error) {
	return r.consume(ctx, repository.EmailTokenVerification, tokenHash, func(tx pgx.Tx, userID string) error {
		_, err := tx.Exec(ctx,
			`UPDATE `+r.schema+`.app_user SET email_verified = TRUE WHERE id = $1`,
			userID)
		return err
	})
}

// consume ejecuta claim + efecto en una transacción.
func (r *emailTokenRepo) consume(ctx context.Context, kind repository.EmailTokenKind, tokenHash string, apply func(tx pgx.Tx, userID string) error) (string, error) {
	table := r.tableFor(kind)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("consume %s token: begin: %w", kind, err)
	}
	defer tx.Rollback(ctx)

	claim := `
		UPDATE ` + table + ` SET used_at = NOW()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
		RETURNING user_id
	`
	var userID string
	err = tx.QueryRow(ctx, claim, tokenHash).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		// El claim no tomó efecto: distinguir por qué.
		return "", r.classifyLoss(ctx, tx, table, tokenHash)
	}
	if err != nil {
		return "", fmt.Errorf("consume %s token: claim: %w", kind, err)
	}

	if err := apply(tx, userID); err != nil {
		return "", fmt.Errorf("consume %s token: apply: %w", kind, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("consume %s token: commit: %w", kind, err)
	}
	return userID, nil
}

// classifyLoss determina por qué el claim no aplicó: usado, expirado o inexistente.
func (r *emailTokenRepo) classifyLoss(ctx context.Context, tx pgx.Tx, table, tokenHash string) error {
	var usedAt *string
	err := tx.QueryRow(ctx,
		`SELECT used_at::text FROM `+table+` WHERE token_hash = $1`, tokenHash,
	).Scan(&usedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("classify token: %w", err)
	}
	if usedAt != nil {
		return repository.ErrTokenUsed
	}
	return repository.ErrTokenExpired
}

// DeleteExpired elimina tokens vencidos o ya usados de ambas tablas.
func (r *emailTokenRepo) DeleteExpired(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range []repository.EmailTokenKind{repository.EmailTokenPasswordReset, repository.EmailTokenVerification} {
		query := `DELETE FROM ` + r.tableFor(kind) + ` WHERE expires_at < NOW() OR used_at IS NOT NULL`
		tag, err := r.pool.Exec(ctx, query)
		if err != nil {
			return total, fmt.Errorf("delete expired %s tokens: %w", kind, err)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}
