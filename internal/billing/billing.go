// Package billing cubre la integración con el proveedor de facturación:
// creación de sesiones de checkout/portal y verificación de webhooks firmados.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Tipos de evento que el webhook de suscripciones puede entregar.
const (
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.canceled"
	EventPaymentFailed        = "payment.failed"
)

var (
	// ErrBadSignature indica que la firma del webhook no corresponde al cuerpo.
	ErrBadSignature = errors.New("billing: firma de webhook inválida")
	// ErrUnknownEvent indica un tipo de evento que no sabemos aplicar.
	ErrUnknownEvent = errors.New("billing: tipo de evento desconocido")
)

// Event es el sobre que entrega el proveedor de facturación.
type Event struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Created int64        `json:"created"`
	Data    Subscription `json:"data"`
}

// Subscription es el payload de suscripción dentro de un evento.
type Subscription struct {
	SubscriptionID string `json:"subscription_id"`
	CustomerID     string `json:"customer_id"`
	UserID         string `json:"user_id,omitempty"`
	Status         string `json:"status"`
	PlanID         string `json:"plan_id"`
	PeriodEnd      int64  `json:"current_period_end"`
}

// CheckoutInput describe la sesión de checkout a crear para un usuario.
type CheckoutInput struct {
	UserID     string
	Email      string
	PlanID     string
	SuccessURL string
	CancelURL  string
}

// PortalInput describe la sesión del portal de facturación.
type PortalInput struct {
	CustomerID string
	ReturnURL  string
}

// Client es el contrato contra el proveedor de facturación. Toda llamada
// saliente respeta el deadline del contexto.
type Client interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (url string, err error)
	CreatePortalSession(ctx context.Context, in PortalInput) (url string, err error)
}

// VerifySignature valida la firma HMAC-SHA256 del cuerpo crudo del webhook.
// La comparación es en tiempo constante.
func VerifySignature(body []byte, signature, secret string) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// Sign produce la firma que VerifySignature espera. La usan los tests y el
// simulador local del proveedor.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// PeriodEndTime convierte el fin de período del evento a time.Time UTC.
func (s Subscription) PeriodEndTime() time.Time {
	if s.PeriodEnd <= 0 {
		return time.Time{}
	}
	return time.Unix(s.PeriodEnd, 0).UTC()
}
