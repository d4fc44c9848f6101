package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbenitez01/citadel/internal/domain/repository/repotest"
)

func TestCreateValidate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "")
	svc := NewService(time.Hour)

	token, err := svc.Create(ctx, store, user.ID)
	require.NoError(t, err)
	require.Contains(t, token, ".")

	sess, u, err := svc.Validate(ctx, store, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, sess.UserID)
	require.Equal(t, user.ID, u.ID)
	require.NotContains(t, sess.SecretHash, token[strings.IndexByte(token, '.')+1:],
		"el secret en claro no debe persistirse")
}

func TestValidate_FormatCheckedFirst(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewService(time.Hour)

	for _, raw := range []string{"", "no-dot", ".secret", "id.", "."} {
		_, _, err := svc.Validate(ctx, store, raw)
		require.ErrorIs(t, err, ErrInvalidFormat, "token %q", raw)
	}
}

func TestValidate_UnknownID(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewService(time.Hour)

	_, _, err := svc.Validate(ctx, store, "no-such-id.somesecret")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidate_WrongSecret(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "")
	svc := NewService(time.Hour)

	token, err := svc.Create(ctx, store, user.ID)
	require.NoError(t, err)

	id := token[:strings.IndexByte(token, '.')]
	_, _, err = svc.Validate(ctx, store, id+".wrong-secret")
	require.ErrorIs(t, err, ErrInvalidSecret)
}

func TestValidate_ExpiredDeletesRow(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "")
	svc := NewService(time.Hour)

	token, err := svc.Create(ctx, store, user.ID)
	require.NoError(t, err)

	id := token[:strings.IndexByte(token, '.')]
	store.AgeSession(id, 2*time.Hour)

	_, _, err = svc.Validate(ctx, store, token)
	require.ErrorIs(t, err, ErrExpired)
	require.Zero(t, store.SessionCount(), "la sesión vencida debe eliminarse al detectarla")

	// La revalidación encuentra la fila ya eliminada.
	_, _, err = svc.Validate(ctx, store, token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRevoke_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "")
	svc := NewService(time.Hour)

	token, err := svc.Create(ctx, store, user.ID)
	require.NoError(t, err)
	id := token[:strings.IndexByte(token, '.')]

	require.NoError(t, svc.Revoke(ctx, store, id))
	require.NoError(t, svc.Revoke(ctx, store, id), "revocar dos veces no es error")

	_, _, err = svc.Validate(ctx, store, token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_TokensDiffer(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "")
	svc := NewService(time.Hour)

	a, err := svc.Create(ctx, store, user.ID)
	require.NoError(t, err)
	b, err := svc.Create(ctx, store, user.ID)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
