package postgres_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbenitez01/citadel/migrations/postgres"
)

// El runner de migraciones referencia el filesystem embebido por el nombre
// del paquete: este test reproduce ese binding desde fuera del paquete.
func TestTenantFSExposesMigrations(t *testing.T) {
	entries, err := postgres.TenantFS.ReadDir(postgres.TenantDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		require.False(t, e.IsDir())
		require.True(t, strings.HasSuffix(e.Name(), ".sql"), "archivo inesperado: %s", e.Name())
	}
}
