package tokens

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	"github.com/mbenitez01/citadel/internal/domain/repository/repotest"
	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
	"github.com/mbenitez01/citadel/internal/security/password"
	sectoken "github.com/mbenitez01/citadel/internal/security/token"
)

func TestIssue_PersistsOnlyHash(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "")
	svc := NewService(time.Hour, 24*time.Hour)

	plain, err := svc.Issue(ctx, store, user.ID, repository.EmailTokenPasswordReset)
	require.NoError(t, err)
	require.NotEmpty(t, plain)

	// El claim sólo funciona con el hash, nunca con el plaintext.
	_, err = store.EmailTokens().ConsumePasswordReset(ctx, plain, "newhash")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConfirmPasswordReset_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "oldhash")
	svc := NewService(time.Hour, 24*time.Hour)

	plain, err := svc.Issue(ctx, store, user.ID, repository.EmailTokenPasswordReset)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, store, plain, "new-password-123"))

	u, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, password.Verify("new-password-123", u.PasswordHash))

	// Segundo uso del mismo token: conflicto, el password no cambia.
	err = svc.ConfirmPasswordReset(ctx, store, plain, "another-password-123")
	require.ErrorIs(t, err, apperrors.ErrTokenAlreadyUsed)

	u, err = store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, password.Verify("new-password-123", u.PasswordHash))
}

func TestConfirmPasswordReset_WeakPassword(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewService(time.Hour, 24*time.Hour)

	err := svc.ConfirmPasswordReset(ctx, store, "any-token", "short")
	require.ErrorIs(t, err, apperrors.ErrPasswordTooWeak)
}

func TestConfirm_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "oldhash")
	svc := NewService(time.Hour, 24*time.Hour)

	// Token inexistente.
	err := svc.ConfirmPasswordReset(ctx, store, "no-such-token", "new-password-123")
	require.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	// Token vencido.
	plain, err := svc.Issue(ctx, store, user.ID, repository.EmailTokenPasswordReset)
	require.NoError(t, err)
	store.ExpireToken(sectoken.SHA256Base64URL(plain))

	err = svc.ConfirmPasswordReset(ctx, store, plain, "new-password-123")
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestConfirmVerification_MarksUser(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "hash")
	svc := NewService(time.Hour, 24*time.Hour)

	plain, err := svc.Issue(ctx, store, user.ID, repository.EmailTokenVerification)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmVerification(ctx, store, plain))

	u, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, u.EmailVerified)

	require.ErrorIs(t, svc.ConfirmVerification(ctx, store, plain), apperrors.ErrTokenAlreadyUsed)
}

func TestConfirmVerification_KindsDontCross(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "hash")
	svc := NewService(time.Hour, 24*time.Hour)

	plain, err := svc.Issue(ctx, store, user.ID, repository.EmailTokenPasswordReset)
	require.NoError(t, err)

	// Un token de reset no verifica email.
	require.ErrorIs(t, svc.ConfirmVerification(ctx, store, plain), apperrors.ErrTokenInvalid)
}

func TestConcurrentConsume_ExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "oldhash")
	svc := NewService(time.Hour, 24*time.Hour)

	plain, err := svc.Issue(ctx, store, user.ID, repository.EmailTokenPasswordReset)
	require.NoError(t, err)

	const callers = 16
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.ConfirmPasswordReset(ctx, store, plain, "new-password-123")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, apperrors.ErrTokenAlreadyUsed)
		}
	}
	require.Equal(t, 1, winners)
}
