// Command migrate aplica las migraciones del schema de cada tenant.
//
// Cada tenant vive en su propio schema de Postgres (su prefijo de storage):
// la misma migración corre una vez por tenant con el search_path fijado al
// schema correspondiente.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/mbenitez01/citadel/internal/config"
	"github.com/mbenitez01/citadel/internal/tenant"
	"github.com/mbenitez01/citadel/migrations/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "ruta al YAML de configuración")
	only := flag.String("tenant", "", "migrar sólo el tenant con este dominio (vacío: todos)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	registry, err := tenant.Load(cfg.Tenants.Path)
	if err != nil {
		log.Fatalf("tenants: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(postgres.TenantFS)
	if err := goose.SetDialect("pgx"); err != nil {
		log.Fatalf("goose: %v", err)
	}

	ctx := context.Background()
	for _, t := range registry.All() {
		if *only != "" && t.Domain != *only {
			continue
		}
		if err := migrateTenant(ctx, db, t); err != nil {
			log.Fatalf("tenant %s: %v", t.Domain, err)
		}
		log.Printf("tenant %s (schema %s): ok", t.Domain, t.Prefix)
	}
}

// migrateTenant crea el schema si falta y corre las migraciones dentro.
// El prefijo ya fue validado por el registro contra ^[a-z][a-z0-9_]{0,30}$.
func migrateTenant(ctx context.Context, db *sql.DB, t *tenant.Tenant) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", t.Prefix)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", t.Prefix)); err != nil {
		return fmt.Errorf("search_path: %w", err)
	}

	goose.SetTableName(t.Prefix + ".goose_db_version")
	if err := goose.UpContext(ctx, db, postgres.TenantDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
