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

// subscriptionRepo implementa repository.SubscriptionRepository.
type subscriptionRepo struct {
	pool   *pgxpool.Pool
	schema string
}

func (r *subscriptionRepo) table() string { return r.schema + ".subscription" }

// user_id es nullable: un webhook puede llegar antes de conocer al usuario.
const subscriptionColumns = `id, COALESCE(user_id, ''), external_subscription_id, status, plan_id, current_period_end, updated_at`

// Upsert aplica un evento de billing con clave external_subscription_id.
// Reentregar el mismo evento deja la fila idéntica (updated_at incluido solo
// cambia cuando cambia algún campo, vía IS DISTINCT FROM).
func (r *subscriptionRepo) Upsert(ctx context.Context, input repository.UpsertSubscriptionInput) (*repository.Subscription, error) {
	query := `
		INSERT INTO ` + r.table() + ` (id, user_id, external_subscription_id, status, plan_id, current_period_end, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NOW())
		ON CONFLICT (external_subscription_id) DO UPDATE SET
			user_id = COALESCE(EXCLUDED.user_id, ` + r.table() + `.user_id),
			status = EXCLUDED.status,
			plan_id = EXCLUDED.plan_id,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = CASE
				WHEN (` + r.table() + `.status, ` + r.table() + `.plan_id, ` + r.table() + `.current_period_end)
					IS DISTINCT FROM (EXCLUDED.status, EXCLUDED.plan_id, EXCLUDED.current_period_end)
				THEN NOW()
				ELSE ` + r.table() + `.updated_at
			END
		RETURNING ` + subscriptionColumns

	s := repository.Subscription{}
	err := r.pool.QueryRow(ctx, query,
		uuid.NewString(), input.UserID, input.ExternalID,
		string(input.Status), input.PlanID, input.CurrentPeriodEnd,
	).Scan(&s.ID, &s.UserID, &s.ExternalID, &s.Status, &s.PlanID, &s.CurrentPeriodEnd, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return &s, nil
}

// GetByUserID obtiene la suscripción de un usuario.
func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*repository.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM ` + r.table() + ` WHERE user_id = $1`
	return r.scanOne(ctx, query, userID)
}

// GetByExternalID obtiene una suscripción por su ID externo.
func (r *subscriptionRepo) GetByExternalID(ctx context.Context, externalID string) (*repository.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM ` + r.table() + ` WHERE external_subscription_id = $1`
	return r.scanOne(ctx, query, externalID)
}

func (r *subscriptionRepo) scanOne(ctx context.Context, query string, arg any) (*repository.Subscription, error) {
	s := repository.Subscription{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.UserID, &s.ExternalID, &s.Status, &s.PlanID, &s.CurrentPeriodEnd, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &s, nil
}
