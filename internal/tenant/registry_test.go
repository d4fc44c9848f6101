package tenant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validTenants() []Tenant {
	return []Tenant{
		{Domain: "app.acme.test", Prefix: "acme"},
		{Domain: "app.globex.test", Prefix: "globex", Providers: []OAuthProviderConfig{
			{Provider: "google", ClientID: "cid", ClientSecret: "cs", RedirectURI: "https://app.globex.test/cb", Enabled: true},
			{Provider: "github", Enabled: false},
		}},
	}
}

func TestNew_ValidRegistry(t *testing.T) {
	reg, err := New(validTenants())
	require.NoError(t, err)
	require.Len(t, reg.All(), 2)
}

func TestNew_RejectsInvalidPrefix(t *testing.T) {
	for _, prefix := range []string{"", "1acme", "Acme", "acme-corp", "acme corp", "pg_really_long_prefix_over_the_limit"} {
		_, err := New([]Tenant{{Domain: "a.test", Prefix: prefix}})
		require.Error(t, err, "prefijo %q debería rechazarse", prefix)
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New([]Tenant{
		{Domain: "a.test", Prefix: "one"},
		{Domain: "A.test", Prefix: "two"},
	})
	require.Error(t, err, "domain duplicado (case-insensitive)")

	_, err = New([]Tenant{
		{Domain: "a.test", Prefix: "shared"},
		{Domain: "b.test", Prefix: "shared"},
	})
	require.Error(t, err, "prefijo compartido entre tenants")
}

func TestNew_RejectsIncompleteEnabledProvider(t *testing.T) {
	_, err := New([]Tenant{{
		Domain: "a.test", Prefix: "a",
		Providers: []OAuthProviderConfig{{Provider: "google", Enabled: true}},
	}})
	require.Error(t, err)
}

func TestResolveHost(t *testing.T) {
	reg, err := New(validTenants())
	require.NoError(t, err)

	for _, host := range []string{"app.acme.test", "APP.ACME.TEST", "app.acme.test:8080", " app.acme.test "} {
		tn, err := reg.ResolveHost(host)
		require.NoError(t, err, "host %q", host)
		require.Equal(t, "acme", tn.Prefix)
	}

	_, err = reg.ResolveHost("unknown.test")
	require.ErrorIs(t, err, ErrUnknownHost)
}

func TestProvider_OnlyEnabled(t *testing.T) {
	reg, err := New(validTenants())
	require.NoError(t, err)

	tn, err := reg.ResolveHost("app.globex.test")
	require.NoError(t, err)

	p, ok := tn.Provider("google")
	require.True(t, ok)
	require.Equal(t, "cid", p.ClientID)

	_, ok = tn.Provider("github")
	require.False(t, ok, "provider deshabilitado no debe resolverse")

	_, ok = tn.Provider("facebook")
	require.False(t, ok)
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	doc := `tenants:
  - domain: app.acme.test
    prefix: acme
    providers:
      - provider: google
        client_id: cid
        client_secret: cs
        redirect_uri: https://app.acme.test/auth/oauth/google/callback
        enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	reg, err := Load(path)
	require.NoError(t, err)

	tn, err := reg.ResolveHost("app.acme.test")
	require.NoError(t, err)
	require.Equal(t, "acme", tn.Prefix)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
