package token

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateOpaque(t *testing.T) {
	a, err := GenerateOpaque(32)
	require.NoError(t, err)
	b, err := GenerateOpaque(32)
	require.NoError(t, err)

	require.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestSHA256Base64URL_Deterministic(t *testing.T) {
	require.Equal(t, SHA256Base64URL("abc"), SHA256Base64URL("abc"))
	require.NotEqual(t, SHA256Base64URL("abc"), SHA256Base64URL("abd"))

	raw, err := base64.RawURLEncoding.DecodeString(SHA256Base64URL("abc"))
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestConstantTimeEquals(t *testing.T) {
	require.True(t, ConstantTimeEquals("secret", "secret"))
	require.False(t, ConstantTimeEquals("secret", "Secret"))
	require.False(t, ConstantTimeEquals("secret", "secret2"))
	require.True(t, ConstantTimeEquals("", ""))
}
