package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testParams usa parámetros bajos para que la suite corra rápido.
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(phc, "$argon2id$v=19$"))

	require.True(t, Verify("correct horse battery staple", phc))
	require.False(t, Verify("correct horse battery stapl", phc))
	require.False(t, Verify("", phc))
}

func TestHash_RejectsEmptyPassword(t *testing.T) {
	_, err := Hash(testParams, "")
	require.Error(t, err)
}

func TestHash_SaltsDiffer(t *testing.T) {
	a, err := Hash(testParams, "same password")
	require.NoError(t, err)
	b, err := Hash(testParams, "same password")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerify_MalformedPHCNeverVerifies(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$ZGs",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$!!!",
		"$argon2id$v=19$garbage$c2FsdA$ZGs",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",
	}
	for _, phc := range cases {
		require.False(t, Verify("whatever", phc), "phc %q no debería verificar", phc)
	}
}
