package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbenitez01/citadel/internal/cache/memory"
	apperrors "github.com/mbenitez01/citadel/internal/http/errors"
)

func TestCSRF_IssueValidate(t *testing.T) {
	ctx := context.Background()
	svc := NewCSRFService(memory.New(time.Minute), 30*time.Minute)

	token, err := svc.Issue(ctx, "app.acme.test", "session-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.Validate(ctx, "app.acme.test", "session-1", token))
}

func TestCSRF_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := NewCSRFService(memory.New(time.Minute), 30*time.Minute)

	token, err := svc.Issue(ctx, "app.acme.test", "session-1")
	require.NoError(t, err)

	// Token ajeno, binding ajeno, tenant ajeno, vacíos.
	require.ErrorIs(t, svc.Validate(ctx, "app.acme.test", "session-1", "otro"), apperrors.ErrCSRFInvalid)
	require.ErrorIs(t, svc.Validate(ctx, "app.acme.test", "session-2", token), apperrors.ErrCSRFInvalid)
	require.ErrorIs(t, svc.Validate(ctx, "app.globex.test", "session-1", token), apperrors.ErrCSRFInvalid)
	require.ErrorIs(t, svc.Validate(ctx, "app.acme.test", "session-1", ""), apperrors.ErrCSRFInvalid)
	require.ErrorIs(t, svc.Validate(ctx, "app.acme.test", "", token), apperrors.ErrCSRFInvalid)
}

func TestCSRF_ReissueReplacesToken(t *testing.T) {
	ctx := context.Background()
	svc := NewCSRFService(memory.New(time.Minute), 30*time.Minute)

	first, err := svc.Issue(ctx, "app.acme.test", "session-1")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "app.acme.test", "session-1")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Validate(ctx, "app.acme.test", "session-1", first), apperrors.ErrCSRFInvalid)
	require.NoError(t, svc.Validate(ctx, "app.acme.test", "session-1", second))
}

func TestCSRF_Expiry(t *testing.T) {
	ctx := context.Background()
	svc := NewCSRFService(memory.New(time.Minute), 30*time.Millisecond)

	token, err := svc.Issue(ctx, "app.acme.test", "session-1")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	require.ErrorIs(t, svc.Validate(ctx, "app.acme.test", "session-1", token), apperrors.ErrCSRFInvalid)
}
