package repository

import (
	"context"
	"time"
)

// SubscriptionStatus es el estado reportado por el proveedor de billing.
// Este core no valida transiciones: solo registra el último estado reportado.
type SubscriptionStatus string

const (
	SubscriptionFree     SubscriptionStatus = "free"
	SubscriptionStandard SubscriptionStatus = "standard"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// Valid indica si el estado es uno de los conocidos.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionStandard, SubscriptionCanceled, SubscriptionPastDue:
		return true
	}
	return false
}

// Subscription espeja el estado de suscripción externo de un usuario.
type Subscription struct {
	ID               string
	UserID           string
	ExternalID       string
	Status           SubscriptionStatus
	PlanID           string
	CurrentPeriodEnd *time.Time
	UpdatedAt        time.Time
}

// UpsertSubscriptionInput contiene un evento de billing a aplicar.
// UserID puede ir vacío en eventos de webhook: en ese caso se conserva el
// vínculo existente de la fila.
type UpsertSubscriptionInput struct {
	ExternalID       string
	UserID           string
	Status           SubscriptionStatus
	PlanID           string
	CurrentPeriodEnd *time.Time
}

// SubscriptionRepository define operaciones sobre suscripciones de un tenant.
type SubscriptionRepository interface {
	// Upsert aplica un evento de forma idempotente, con clave
	// external_subscription_id. Reaplicar el mismo evento deja el estado
	// sin cambios.
	Upsert(ctx context.Context, input UpsertSubscriptionInput) (*Subscription, error)

	// GetByUserID obtiene la suscripción de un usuario.
	// Retorna ErrNotFound si no tiene.
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)

	// GetByExternalID obtiene una suscripción por su ID externo.
	GetByExternalID(ctx context.Context, externalID string) (*Subscription, error)
}
