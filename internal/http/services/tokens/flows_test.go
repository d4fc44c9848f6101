package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbenitez01/citadel/internal/domain/repository/repotest"
	"github.com/mbenitez01/citadel/internal/tenant"
)

type captureNotifier struct {
	verifyLinks []string
	resetLinks  []string
	fail        bool
}

func (c *captureNotifier) SendVerification(_ context.Context, _, link string, _ time.Duration) error {
	if c.fail {
		return errors.New("smtp down")
	}
	c.verifyLinks = append(c.verifyLinks, link)
	return nil
}

func (c *captureNotifier) SendPasswordReset(_ context.Context, _, link string, _ time.Duration) error {
	if c.fail {
		return errors.New("smtp down")
	}
	c.resetLinks = append(c.resetLinks, link)
	return nil
}

var flowTenant = &tenant.Tenant{Domain: "app.acme.test", Prefix: "acme"}

func TestRequestPasswordReset_SilentForUnknownEmail(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	n := &captureNotifier{}
	flows := NewFlows(NewService(time.Hour, 24*time.Hour), n, "")

	require.NoError(t, flows.RequestPasswordReset(ctx, store, flowTenant, "nadie@acme.test"))
	require.Empty(t, n.resetLinks)
}

func TestRequestPasswordReset_SendsLink(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	store.SeedUser("ana@acme.test", "hash")
	n := &captureNotifier{}
	flows := NewFlows(NewService(time.Hour, 24*time.Hour), n, "")

	require.NoError(t, flows.RequestPasswordReset(ctx, store, flowTenant, "ana@acme.test"))
	require.Len(t, n.resetLinks, 1)
	require.Contains(t, n.resetLinks[0], "https://app.acme.test/reset-password?token=")
}

func TestLinkFor_UsesBaseURLWhenConfigured(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	store.SeedUser("ana@acme.test", "hash")
	n := &captureNotifier{}
	flows := NewFlows(NewService(time.Hour, 24*time.Hour), n, "https://portal.acme.test/")

	require.NoError(t, flows.RequestPasswordReset(ctx, store, flowTenant, "ana@acme.test"))
	require.Len(t, n.resetLinks, 1)
	require.Contains(t, n.resetLinks[0], "https://portal.acme.test/reset-password?token=")
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "hash")
	n := &captureNotifier{}
	flows := NewFlows(NewService(time.Hour, 24*time.Hour), n, "")

	// Email desconocido: silencioso.
	require.NoError(t, flows.ResendVerification(ctx, store, flowTenant, "nadie@acme.test"))
	require.Empty(t, n.verifyLinks)

	// Sin verificar: reenvía.
	require.NoError(t, flows.ResendVerification(ctx, store, flowTenant, "ana@acme.test"))
	require.Len(t, n.verifyLinks, 1)

	// Ya verificado: no reenvía.
	require.NoError(t, store.Users().SetEmailVerified(ctx, user.ID))
	require.NoError(t, flows.ResendVerification(ctx, store, flowTenant, "ana@acme.test"))
	require.Len(t, n.verifyLinks, 1)
}

func TestSendVerification_NotifierFailureReported(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	user := store.SeedUser("ana@acme.test", "hash")
	flows := NewFlows(NewService(time.Hour, 24*time.Hour), &captureNotifier{fail: true}, "")

	sent, err := flows.SendVerification(ctx, store, flowTenant, user)
	require.NoError(t, err, "la falla del envío es secundaria")
	require.False(t, sent)
}
