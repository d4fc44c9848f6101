// Package billingsvc sincroniza estado de suscripciones desde el proveedor
// de facturación y crea sesiones de checkout/portal.
package billingsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mbenitez01/citadel/internal/billing"
	"github.com/mbenitez01/citadel/internal/domain/repository"
	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/metrics"
	"github.com/mbenitez01/citadel/internal/observability/logger"
)

// Service implementa subscription sync + sesiones de billing.
type Service struct {
	client        billing.Client
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewService crea el servicio de billing.
func NewService(client billing.Client, webhookSecret, successURL, cancelURL string) *Service {
	return &Service{
		client:        client,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

// Checkout crea una sesión de checkout para el usuario autenticado.
// Un solo intento acotado contra el proveedor; la falla es UPSTREAM_ERROR.
func (s *Service) Checkout(ctx context.Context, da repository.DataAccess, userID, planID string) (string, error) {
	user, err := da.Users().GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.client.CreateCheckoutSession(ctx, billing.CheckoutInput{
		UserID:     user.ID,
		Email:      user.Email,
		PlanID:     planID,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		return "", apperrors.ErrUpstream.WithCause(err)
	}
	return url, nil
}

// Portal crea una sesión del portal de facturación. Requiere que el usuario
// ya tenga una suscripción espejada (el ID externo identifica al customer).
func (s *Service) Portal(ctx context.Context, da repository.DataAccess, userID string) (string, error) {
	sub, err := da.Subscriptions().GetByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", apperrors.ErrNotFound.WithDetail("el usuario no tiene suscripción")
		}
		return "", err
	}

	url, err := s.client.CreatePortalSession(ctx, billing.PortalInput{
		CustomerID: sub.ExternalID,
		ReturnURL:  s.successURL,
	})
	if err != nil {
		return "", apperrors.ErrUpstream.WithCause(err)
	}
	return url, nil
}

// HandleWebhook verifica la firma del webhook y aplica el evento.
//
// La aplicación es idempotente: el upsert usa external_subscription_id como
// clave y reaplicar el mismo evento deja el estado sin cambios. Tipos de
// evento desconocidos se loguean y se ignoran sin fallar al caller.
func (s *Service) HandleWebhook(ctx context.Context, da repository.DataAccess, body []byte, signature string) error {
	if err := billing.VerifySignature(body, signature, s.webhookSecret); err != nil {
		metrics.WebhookEvents.WithLabelValues("bad_signature").Inc()
		return apperrors.ErrWebhookSignature
	}

	var ev billing.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return apperrors.ErrInvalidJSON
	}

	status, known := statusFor(ev)
	if !known {
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		logger.From(ctx).Info("evento de billing ignorado",
			logger.String("event_type", ev.Type),
			logger.SubscriptionID(ev.Data.SubscriptionID),
		)
		return nil
	}

	if ev.Data.SubscriptionID == "" {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return apperrors.ErrMissingFields.WithDetail("subscription_id")
	}

	var periodEnd *time.Time
	if pe := ev.Data.PeriodEndTime(); !pe.IsZero() {
		periodEnd = &pe
	}

	if _, err := da.Subscriptions().Upsert(ctx, repository.UpsertSubscriptionInput{
		ExternalID:       ev.Data.SubscriptionID,
		UserID:           ev.Data.UserID,
		Status:           status,
		PlanID:           ev.Data.PlanID,
		CurrentPeriodEnd: periodEnd,
	}); err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		return err
	}

	metrics.WebhookEvents.WithLabelValues(ev.Type).Inc()
	return nil
}

// statusFor mapea el tipo de evento + payload al estado a registrar.
// Este core no valida legalidad de transiciones: registra lo último reportado.
func statusFor(ev billing.Event) (repository.SubscriptionStatus, bool) {
	switch ev.Type {
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		st := repository.SubscriptionStatus(ev.Data.Status)
		if !st.Valid() {
			st = repository.SubscriptionStandard
		}
		return st, true
	case billing.EventSubscriptionCanceled:
		return repository.SubscriptionCanceled, true
	case billing.EventPaymentFailed:
		return repository.SubscriptionPastDue, true
	default:
		return "", false
	}
}
