// Package router arma el árbol de rutas completo del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctrl "github.com/mbenitez01/citadel/internal/http/controllers/auth"
	billingctrl "github.com/mbenitez01/citadel/internal/http/controllers/billing"
	emailctrl "github.com/mbenitez01/citadel/internal/http/controllers/email"
	healthctrl "github.com/mbenitez01/citadel/internal/http/controllers/health"
	securityctrl "github.com/mbenitez01/citadel/internal/http/controllers/security"
	socialctrl "github.com/mbenitez01/citadel/internal/http/controllers/social"
	mw "github.com/mbenitez01/citadel/internal/http/middlewares"
)

// Deps agrupa todo lo que las rutas necesitan.
type Deps struct {
	Auth     *authctrl.Controller
	Email    *emailctrl.Controller
	Security *securityctrl.Controller
	Social   *socialctrl.Controller
	Billing  *billingctrl.Controller
	Health   *healthctrl.Controller

	// Middlewares ya configurados. Tenant corre sobre todo /auth; Session
	// sólo sobre rutas que exigen usuario autenticado; CSRF sobre mutaciones
	// navegador-originadas; los rate sobre endpoints de credenciales.
	Tenant mw.Middleware
	// SessionAuth exige sesión; SessionOptional la inyecta si existe
	// (la emisión de CSRF liga el token a la sesión cuando hay una).
	SessionAuth     mw.Middleware
	SessionOptional mw.Middleware
	CSRF            mw.Middleware
	RateLogin       mw.Middleware
	RateSignup      mw.Middleware
	RateForgot      mw.Middleware
}

// New construye el router chi con la cadena de middlewares base.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRequestID())
	r.Use(mw.WithRecover())
	r.Use(mw.WithSecurityHeaders())

	// Operacionales: sin tenant, sin auth.
	r.Get("/healthz", d.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(d.Tenant)
		r.Use(mw.WithLogging())
		r.Use(mw.WithNoStore())

		// Credenciales (anónimo + CSRF + rate limit)
		r.Group(func(r chi.Router) {
			r.Use(d.CSRF)
			r.With(d.RateSignup).Post("/signup", d.Auth.Signup)
			r.With(d.RateLogin).Post("/login", d.Auth.Login)
			r.With(d.RateForgot).Post("/password-reset", d.Email.RequestReset)
			r.Post("/password-reset/confirm", d.Email.ConfirmReset)
			r.Post("/email/verify", d.Email.Verify)
			r.With(d.RateForgot).Post("/email/resend-verification", d.Email.Resend)
		})

		r.With(d.SessionOptional).Get("/csrf-token", d.Security.Token)

		// Sesión
		r.Group(func(r chi.Router) {
			r.Use(d.SessionAuth)
			r.Get("/session", d.Auth.Session)
			r.With(d.CSRF).Post("/logout", d.Auth.Logout)
		})

		// OAuth (flujo de redirecciones, sin CSRF: el state firmado cumple
		// ese rol en el callback)
		r.Get("/oauth/{provider}/authorize", d.Social.Authorize)
		r.Get("/oauth/{provider}/callback", d.Social.Callback)

		// Billing
		r.Route("/billing", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(d.SessionAuth, d.CSRF)
				r.Post("/checkout-session", d.Billing.Checkout)
				r.Post("/portal-session", d.Billing.Portal)
			})
			// El webhook autentica por firma HMAC, no por sesión ni CSRF.
			r.Post("/webhook", d.Billing.Webhook)
		})
	})

	return r
}
