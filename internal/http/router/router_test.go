package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbenitez01/citadel/internal/billing"
	"github.com/mbenitez01/citadel/internal/cache/memory"
	"github.com/mbenitez01/citadel/internal/domain/repository"
	"github.com/mbenitez01/citadel/internal/domain/repository/repotest"
	authctrl "github.com/mbenitez01/citadel/internal/http/controllers/auth"
	billingctrl "github.com/mbenitez01/citadel/internal/http/controllers/billing"
	emailctrl "github.com/mbenitez01/citadel/internal/http/controllers/email"
	healthctrl "github.com/mbenitez01/citadel/internal/http/controllers/health"
	securityctrl "github.com/mbenitez01/citadel/internal/http/controllers/security"
	socialctrl "github.com/mbenitez01/citadel/internal/http/controllers/social"
	"github.com/mbenitez01/citadel/internal/http/helpers"
	mw "github.com/mbenitez01/citadel/internal/http/middlewares"
	authsvc "github.com/mbenitez01/citadel/internal/http/services/auth"
	billingsvc "github.com/mbenitez01/citadel/internal/http/services/billingsvc"
	securitysvc "github.com/mbenitez01/citadel/internal/http/services/security"
	sessionsvc "github.com/mbenitez01/citadel/internal/http/services/session"
	socialsvc "github.com/mbenitez01/citadel/internal/http/services/social"
	"github.com/mbenitez01/citadel/internal/http/services/tokens"
	"github.com/mbenitez01/citadel/internal/notifier"
	"github.com/mbenitez01/citadel/internal/oauth"
	"github.com/mbenitez01/citadel/internal/rate"
	"github.com/mbenitez01/citadel/internal/tenant"
)

const (
	testHost     = "app.acme.test"
	testWHSecret = "whsec_router_test"
)

// newTestHandler arma el árbol completo con stores en memoria.
func newTestHandler(t *testing.T) (http.Handler, *repotest.Store) {
	t.Helper()

	reg, err := tenant.New([]tenant.Tenant{{
		Domain: testHost,
		Prefix: "acme",
		Providers: []tenant.OAuthProviderConfig{{
			Provider: "google", ClientID: "cid", ClientSecret: "cs",
			RedirectURI: "https://" + testHost + "/auth/oauth/google/callback",
			Enabled:     true,
		}},
	}})
	require.NoError(t, err)

	store := repotest.New()
	provider := func(string) repository.DataAccess { return store }

	cacheClient := memory.New(time.Minute)
	sessions := sessionsvc.NewService(time.Hour)
	tokensSvc := tokens.NewService(time.Hour, 24*time.Hour)
	flows := tokens.NewFlows(tokensSvc, notifier.Nop{}, "")
	authS := authsvc.NewService(flows, 5, 15*time.Minute)
	csrfS := securitysvc.NewCSRFService(cacheClient, 30*time.Minute)
	socialS := socialsvc.NewService(oauth.NewStateSigner("router-test"), sessions)
	billingS := billingsvc.NewService(nil, testWHSecret, "", "")

	sessionCookie := helpers.CookieOpts{Name: "sid", SameSite: "Lax", TTL: time.Hour}
	csrfCookie := helpers.CookieOpts{Name: "csrf_token", SameSite: "Lax", TTL: 30 * time.Minute}
	noLimit := mw.WithRateLimit(rate.NopLimiter{}, "test")

	return New(Deps{
		Auth:     authctrl.NewController(authS, sessions, sessionCookie),
		Email:    emailctrl.NewController(tokensSvc, flows),
		Security: securityctrl.NewController(csrfS, csrfCookie),
		Social:   socialctrl.NewController(socialS, sessionCookie),
		Billing:  billingctrl.NewController(billingS),
		Health:   healthctrl.NewController(nil, cacheClient),

		Tenant:          mw.WithTenantResolution(reg, provider),
		SessionAuth:     mw.WithSessionAuth(sessions, "sid"),
		SessionOptional: mw.WithOptionalSession(sessions, "sid"),
		CSRF:            mw.WithCSRF(csrfS),
		RateLogin:       noLimit,
		RateSignup:      noLimit,
		RateForgot:      noLimit,
	}), store
}

// csrfCredentials obtiene un token CSRF anónimo con su cookie cid.
func csrfCredentials(t *testing.T, h http.Handler) (token string, cookies []*http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://"+testHost+"/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)
	return body.CSRFToken, rec.Result().Cookies()
}

func postJSON(h http.Handler, path, csrfToken string, cookies []*http.Cookie, payload any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(payload)
	req := httptest.NewRequest(http.MethodPost, "http://"+testHost+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if csrfToken != "" {
		req.Header.Set("X-CSRF-Token", csrfToken)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSignupLoginSessionLogout(t *testing.T) {
	h, _ := newTestHandler(t)
	csrf, cookies := csrfCredentials(t, h)

	// Signup.
	rec := postJSON(h, "/auth/signup", csrf, cookies, map[string]string{
		"email": "ana@acme.test", "password": "hunter2hunter2", "first_name": "Ana",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Login.
	rec = postJSON(h, "/auth/login", csrf, cookies, map[string]string{
		"email": "ana@acme.test", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		SessionToken string `json:"session_token"`
		UserID       string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.SessionToken)

	// GET /auth/session con Bearer.
	req := httptest.NewRequest(http.MethodGet, "http://"+testHost+"/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+login.SessionToken)
	seRec := httptest.NewRecorder()
	h.ServeHTTP(seRec, req)
	require.Equal(t, http.StatusOK, seRec.Code)

	var sess struct {
		Email        string `json:"email"`
		Subscription string `json:"subscription"`
	}
	require.NoError(t, json.Unmarshal(seRec.Body.Bytes(), &sess))
	require.Equal(t, "ana@acme.test", sess.Email)
	require.Equal(t, "free", sess.Subscription, "sin suscripción espejada el estado es free")

	// Con sesión, el token CSRF queda ligado a ella.
	req = httptest.NewRequest(http.MethodGet, "http://"+testHost+"/auth/csrf-token", nil)
	req.Header.Set("Authorization", "Bearer "+login.SessionToken)
	csrfRec := httptest.NewRecorder()
	h.ServeHTTP(csrfRec, req)
	require.Equal(t, http.StatusOK, csrfRec.Code)

	var sessCSRF struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(csrfRec.Body.Bytes(), &sessCSRF))

	// El token anónimo previo NO sirve para el logout.
	req = httptest.NewRequest(http.MethodPost, "http://"+testHost+"/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+login.SessionToken)
	req.Header.Set("X-CSRF-Token", csrf)
	loRec := httptest.NewRecorder()
	h.ServeHTTP(loRec, req)
	require.Equal(t, http.StatusForbidden, loRec.Code)

	// El ligado a la sesión sí.
	req = httptest.NewRequest(http.MethodPost, "http://"+testHost+"/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+login.SessionToken)
	req.Header.Set("X-CSRF-Token", sessCSRF.CSRFToken)
	loRec = httptest.NewRecorder()
	h.ServeHTTP(loRec, req)
	require.Equal(t, http.StatusNoContent, loRec.Code)

	// La sesión revocada ya no sirve.
	req = httptest.NewRequest(http.MethodGet, "http://"+testHost+"/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+login.SessionToken)
	seRec = httptest.NewRecorder()
	h.ServeHTTP(seRec, req)
	require.Equal(t, http.StatusUnauthorized, seRec.Code)
}

func TestMutationsRequireCSRF(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(h, "/auth/signup", "", nil, map[string]string{
		"email": "ana@acme.test", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownHostRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "http://unknown.test/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginFailureStatuses(t *testing.T) {
	h, _ := newTestHandler(t)
	csrf, cookies := csrfCredentials(t, h)

	rec := postJSON(h, "/auth/signup", csrf, cookies, map[string]string{
		"email": "ana@acme.test", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Password incorrecto y usuario inexistente devuelven el mismo error.
	wrong := postJSON(h, "/auth/login", csrf, cookies, map[string]string{
		"email": "ana@acme.test", "password": "nope-nope-nope",
	})
	unknown := postJSON(h, "/auth/login", csrf, cookies, map[string]string{
		"email": "nadie@acme.test", "password": "nope-nope-nope",
	})
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, wrong.Body.String(), unknown.Body.String())

	// Duplicado de email.
	rec = postJSON(h, "/auth/signup", csrf, cookies, map[string]string{
		"email": "ana@acme.test", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	h, _ := newTestHandler(t)
	csrf, cookies := csrfCredentials(t, h)

	rec := postJSON(h, "/auth/signup", csrf, cookies, map[string]string{
		"email": "ana@acme.test", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// La solicitud responde 202 exista o no la cuenta.
	for _, email := range []string{"ana@acme.test", "nadie@acme.test"} {
		rec = postJSON(h, "/auth/password-reset", csrf, cookies, map[string]string{"email": email})
		require.Equal(t, http.StatusAccepted, rec.Code, "email %s", email)
	}

	// Confirmación con token inválido: 404.
	rec = postJSON(h, "/auth/password-reset/confirm", csrf, cookies, map[string]string{
		"token": "bogus", "new_password": "new-password-123",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBillingWebhook(t *testing.T) {
	h, store := newTestHandler(t)
	user := store.SeedUser("ana@acme.test", "hash")

	ev := map[string]any{
		"id":   "evt_1",
		"type": billing.EventSubscriptionCreated,
		"data": map[string]any{
			"subscription_id": "sub_ext_1",
			"user_id":         user.ID,
			"status":          "standard",
			"plan_id":         "plan_pro",
		},
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	send := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "http://"+testHost+"/auth/billing/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if sig != "" {
			req.Header.Set("X-Webhook-Signature", sig)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusForbidden, send("").Code)
	require.Equal(t, http.StatusForbidden, send("deadbeef").Code)
	require.Equal(t, http.StatusOK, send(billing.Sign(body, testWHSecret)).Code)

	sub, err := store.Subscriptions().GetByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, repository.SubscriptionStandard, sub.Status)
}

func TestBillingCheckoutRequiresSession(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(h, "/auth/billing/checkout-session", "", nil, map[string]string{"plan_id": "plan_pro"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthAuthorize(t *testing.T) {
	h, _ := newTestHandler(t)

	// Provider habilitado: redirige al consentimiento con state firmado.
	req := httptest.NewRequest(http.MethodGet, "http://"+testHost+"/auth/oauth/google/authorize", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "https://accounts.google.com/"))
	require.Contains(t, loc, "state=")

	// Provider no habilitado para el tenant.
	req = httptest.NewRequest(http.MethodGet, "http://"+testHost+"/auth/oauth/github/authorize", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
