package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbenitez01/citadel/internal/domain/repository/repotest"
	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/http/services/tokens"
	"github.com/mbenitez01/citadel/internal/security/password"
	"github.com/mbenitez01/citadel/internal/tenant"
)

// fakeNotifier registra envíos y puede forzar fallos.
type fakeNotifier struct {
	verifications int
	resets        int
	fail          bool
}

func (f *fakeNotifier) SendVerification(_ context.Context, _, _ string, _ time.Duration) error {
	f.verifications++
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, _, _ string, _ time.Duration) error {
	f.resets++
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

var testTenant = &tenant.Tenant{Domain: "app.acme.test", Prefix: "acme"}

func newTestService(n *fakeNotifier) *Service {
	flows := tokens.NewFlows(tokens.NewService(time.Hour, 24*time.Hour), n, "")
	return NewService(flows, 5, 15*time.Minute)
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := password.Hash(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}, plain)
	require.NoError(t, err)
	return h
}

func TestSignup_CreatesUserAndSendsVerification(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	n := &fakeNotifier{}
	svc := newTestService(n)

	res, err := svc.Signup(ctx, store, testTenant, SignupInput{
		Email:     " Ana@Acme.Test ",
		Password:  "hunter2hunter2",
		FirstName: "Ana",
		LastName:  "García",
	})
	require.NoError(t, err)
	require.Equal(t, "ana@acme.test", res.User.Email)
	require.False(t, res.User.EmailVerified)
	require.True(t, res.EmailSent)
	require.Equal(t, 1, n.verifications)

	// El password nunca queda en claro.
	u, err := store.Users().GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	require.NotEqual(t, "hunter2hunter2", u.PasswordHash)
	require.True(t, password.Verify("hunter2hunter2", u.PasswordHash))
}

func TestSignup_NotifierFailureIsSecondary(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := newTestService(&fakeNotifier{fail: true})

	res, err := svc.Signup(ctx, store, testTenant, SignupInput{Email: "ana@acme.test", Password: "hunter2hunter2"})
	require.NoError(t, err, "la falla del notifier no aborta el signup")
	require.False(t, res.EmailSent)
}

func TestSignup_Rejections(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := newTestService(&fakeNotifier{})

	_, err := svc.Signup(ctx, store, testTenant, SignupInput{Email: "not-an-email", Password: "hunter2hunter2"})
	require.ErrorIs(t, err, apperrors.ErrInvalidFormat)

	_, err = svc.Signup(ctx, store, testTenant, SignupInput{Email: "ana@acme.test", Password: "short"})
	require.ErrorIs(t, err, apperrors.ErrPasswordTooWeak)

	_, err = svc.Signup(ctx, store, testTenant, SignupInput{Email: "ana@acme.test", Password: "hunter2hunter2"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, store, testTenant, SignupInput{Email: "ANA@acme.test", Password: "hunter2hunter2"})
	require.ErrorIs(t, err, apperrors.ErrEmailAlreadyInUse, "el email se compara normalizado")
}

func TestLogin_OK(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	store.SeedUser("ana@acme.test", mustHash(t, "hunter2hunter2"))
	svc := newTestService(&fakeNotifier{})

	u, err := svc.Login(ctx, store, "Ana@Acme.Test", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "ana@acme.test", u.Email)
}

func TestLogin_UnknownUserAndWrongPasswordIndistinguishable(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	store.SeedUser("ana@acme.test", mustHash(t, "hunter2hunter2"))
	svc := newTestService(&fakeNotifier{})

	_, errUnknown := svc.Login(ctx, store, "nadie@acme.test", "whatever12345")
	_, errWrong := svc.Login(ctx, store, "ana@acme.test", "wrong-password")

	require.ErrorIs(t, errUnknown, apperrors.ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, apperrors.ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_LockoutMachine(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", mustHash(t, "hunter2hunter2"))
	svc := newTestService(&fakeNotifier{})

	// Cuatro fallos: todavía INVALID_CREDENTIALS.
	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, store, "ana@acme.test", "wrong")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	// El quinto fallo alcanza el umbral y fija el lockout.
	_, err := svc.Login(ctx, store, "ana@acme.test", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	// Con el lockout activo ni el password correcto entra.
	_, err = svc.Login(ctx, store, "ana@acme.test", "hunter2hunter2")
	require.ErrorIs(t, err, apperrors.ErrAccountLocked)

	// Ventana vencida: el lock termina solo, y el login exitoso
	// limpia contador y lockout.
	past := time.Now().UTC().Add(-time.Minute)
	store.SetLockout(user.ID, 5, &past)

	u, err := svc.Login(ctx, store, "ana@acme.test", "hunter2hunter2")
	require.NoError(t, err)
	require.Zero(t, u.FailedAttempts)
	require.Nil(t, u.LockedUntil)
}

func TestLogin_OAuthOnlyUserHasNoPassword(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	store.SeedUser("ana@acme.test", "") // creado por OAuth, sin credencial local
	svc := newTestService(&fakeNotifier{})

	_, err := svc.Login(ctx, store, "ana@acme.test", "anything-at-all")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
