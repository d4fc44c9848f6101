package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbenitez01/citadel/internal/cache/memory"
	"github.com/mbenitez01/citadel/internal/domain/repository"
	"github.com/mbenitez01/citadel/internal/domain/repository/repotest"
	securitysvc "github.com/mbenitez01/citadel/internal/http/services/security"
	sessionsvc "github.com/mbenitez01/citadel/internal/http/services/session"
	"github.com/mbenitez01/citadel/internal/tenant"
)

func testRegistry(t *testing.T) *tenant.Registry {
	t.Helper()
	reg, err := tenant.New([]tenant.Tenant{
		{Domain: "app.acme.test", Prefix: "acme"},
		{Domain: "app.globex.test", Prefix: "globex"},
	})
	require.NoError(t, err)
	return reg
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestWithTenantResolution(t *testing.T) {
	stores := map[string]repository.DataAccess{
		"acme":   repotest.New(),
		"globex": repotest.New(),
	}
	provider := func(prefix string) repository.DataAccess { return stores[prefix] }

	var seen *tenant.Tenant
	var seenDA repository.DataAccess
	handler := WithTenantResolution(testRegistry(t), provider)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = MustGetTenant(r.Context())
			seenDA = MustGetDataAccess(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "http://app.acme.test:8080/auth/session", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	require.Equal(t, "acme", seen.Prefix)
	require.Same(t, stores["acme"], seenDA, "el DataAccess inyectado es la partición del tenant")

	// Host desconocido corta el request.
	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "http://unknown.test/auth/session", nil)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "TENANT_NOT_FOUND", errCode(t, rec))
}

func TestWithSessionAuth(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "")
	sessions := sessionsvc.NewService(time.Hour)

	token, err := sessions.Create(ctx, store, user.ID)
	require.NoError(t, err)

	var gotUser, gotSession string
	mw := WithSessionAuth(sessions, "sid")
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUserID(r.Context())
		gotSession = GetSessionID(r.Context())
	}))

	send := func(authorize func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "http://app.acme.test/auth/session", nil)
		req = req.WithContext(WithDataAccess(req.Context(), store))
		if authorize != nil {
			authorize(req)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Bearer.
	rec := send(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, user.ID, gotUser)
	require.Equal(t, token[:strings.IndexByte(token, '.')], gotSession)

	// Cookie.
	rec = send(func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: token}) })
	require.Equal(t, http.StatusOK, rec.Code)

	// Sin credencial.
	rec = send(nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", errCode(t, rec))

	// Token con formato inválido.
	rec = send(func(r *http.Request) { r.Header.Set("Authorization", "Bearer notavalidtoken") })
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "SESSION_INVALID", errCode(t, rec))

	// Sesión vencida.
	id := token[:strings.IndexByte(token, '.')]
	store.AgeSession(id, 2*time.Hour)
	rec = send(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "SESSION_EXPIRED", errCode(t, rec))
}

func TestWithCSRF(t *testing.T) {
	ctx := context.Background()
	csrf := securitysvc.NewCSRFService(memory.New(time.Minute), 30*time.Minute)
	tn := &tenant.Tenant{Domain: "app.acme.test", Prefix: "acme"}

	var hit bool
	handler := WithCSRF(csrf)(okHandler(&hit))

	send := func(method, token string, cookie *http.Cookie) *httptest.ResponseRecorder {
		hit = false
		req := httptest.NewRequest(method, "http://app.acme.test/auth/login", nil)
		req = req.WithContext(WithTenant(req.Context(), tn))
		if token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Métodos de lectura pasan sin token.
	rec := send(http.MethodGet, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, hit)

	// POST sin token rechazado.
	rec = send(http.MethodPost, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, hit)

	// POST con token ligado al cid anónimo pasa.
	token, err := csrf.Issue(ctx, tn.Domain, "anon-cid-1")
	require.NoError(t, err)
	rec = send(http.MethodPost, token, &http.Cookie{Name: ClientIDCookie, Value: "anon-cid-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, hit)

	// Token de otro binding rechazado.
	rec = send(http.MethodPost, token, &http.Cookie{Name: ClientIDCookie, Value: "anon-cid-2"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	var got string
	handler := WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://a.test/", nil))
	require.NotEmpty(t, got)
	require.Equal(t, got, rec.Header().Get("X-Request-ID"))

	// Un request id entrante se respeta.
	req := httptest.NewRequest(http.MethodGet, "http://a.test/", nil)
	req.Header.Set("X-Request-ID", "incoming-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "incoming-id", got)
}
