package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"subscription.created"}`)
	sig := Sign(body, "whsec_test")

	require.NoError(t, VerifySignature(body, sig, "whsec_test"))
}

func TestVerifySignature_Rejects(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := Sign(body, "whsec_test")

	require.ErrorIs(t, VerifySignature([]byte(`{"id":"evt_2"}`), sig, "whsec_test"), ErrBadSignature)
	require.ErrorIs(t, VerifySignature(body, sig, "whsec_other"), ErrBadSignature)
	require.ErrorIs(t, VerifySignature(body, "", "whsec_test"), ErrBadSignature)
	require.ErrorIs(t, VerifySignature(body, "deadbeef", "whsec_test"), ErrBadSignature)
}

func TestPeriodEndTime(t *testing.T) {
	sub := Subscription{PeriodEnd: 1735689600} // 2025-01-01T00:00:00Z
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), sub.PeriodEndTime())

	var empty Subscription
	require.True(t, empty.PeriodEndTime().IsZero())
}
