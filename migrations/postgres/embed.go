// Package postgres embebe los archivos SQL de migración.
package postgres

import "embed"

// TenantFS contiene las migraciones del schema por-tenant.
//
//go:embed tenant/*.sql
var TenantFS embed.FS

// TenantDir es el directorio dentro de TenantFS donde viven las migraciones.
const TenantDir = "tenant"
