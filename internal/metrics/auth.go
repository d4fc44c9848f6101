// Package metrics define los contadores Prometheus del dominio de autenticación.
// Viven en un paquete propio para evitar ciclos de import entre services y HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Intentos de login por resultado (ok, invalid, locked)",
	}, []string{"result"})

	Lockouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockouts_total",
		Help: "Cuentas bloqueadas por intentos fallidos",
	})

	Signups = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_signups_total",
		Help: "Registros de usuarios completados",
	})

	SessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_issued_total",
		Help: "Sesiones emitidas",
	})

	TokensConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_email_tokens_consumed_total",
		Help: "Consumos de tokens de email por tipo y resultado",
	}, []string{"kind", "result"})

	OAuthCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_oauth_callbacks_total",
		Help: "Callbacks OAuth por provider y resultado",
	}, []string{"provider", "result"})

	WebhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Eventos de webhook de billing por tipo",
	}, []string{"type"})

	NotifierFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifier_failures_total",
		Help: "Fallos de envío de email (no abortan la operación primaria)",
	})
)

// Register registra las métricas en el registry dado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		Logins, Lockouts, Signups, SessionsIssued,
		TokensConsumed, OAuthCallbacks, WebhookEvents, NotifierFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
