// Command citadelctl es la herramienta operativa: purga de sesiones y
// tokens vencidos, e inspección del registro de tenants.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mbenitez01/citadel/internal/config"
	"github.com/mbenitez01/citadel/internal/store/pg"
	"github.com/mbenitez01/citadel/internal/tenant"
)

var configPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "citadelctl",
		Short:        "Herramienta operativa del servicio de autenticación",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_PATH", "config.yaml"), "ruta al YAML de configuración")

	root.AddCommand(tenantsCmd(), purgeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadAll(ctx context.Context) (*config.Config, *tenant.Registry, *pgxpool.Pool, func(prefix string) *pg.TenantStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	reg, err := tenant.Load(cfg.Tenants.Path)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	pool, err := pg.NewPool(ctx, pg.Config{DSN: cfg.Storage.DSN, MaxConns: int32(cfg.Storage.MaxConns)})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	stores := func(prefix string) *pg.TenantStore { return pg.NewTenantStore(pool, prefix) }
	return cfg, reg, pool, stores, nil
}

func tenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Inspección del registro de tenants",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lista los tenants registrados con su prefijo y providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			reg, err := tenant.Load(cfg.Tenants.Path)
			if err != nil {
				return err
			}
			for _, t := range reg.All() {
				providers := ""
				for _, p := range t.Providers {
					if p.Enabled {
						providers += " " + p.Provider
					}
				}
				fmt.Printf("%-40s schema=%-20s providers:%s\n", t.Domain, t.Prefix, providers)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Valida el archivo de tenants sin tocar la base",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			reg, err := tenant.Load(cfg.Tenants.Path)
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d tenants válidos\n", len(reg.All()))
			return nil
		},
	})

	return cmd
}

func purgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Elimina filas vencidas (reap explícito, complementa el lazy)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "Elimina sesiones más viejas que el TTL configurado",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, reg, pool, stores, err := loadAll(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			cutoff := time.Now().UTC().Add(-cfg.Auth.Session.TTL)
			for _, t := range reg.All() {
				n, err := stores(t.Prefix).Sessions().DeleteExpired(ctx, cutoff)
				if err != nil {
					return fmt.Errorf("tenant %s: %w", t.Domain, err)
				}
				fmt.Printf("%s: %d sesiones eliminadas\n", t.Domain, n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tokens",
		Short: "Elimina tokens de email vencidos o ya usados",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, reg, pool, stores, err := loadAll(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			for _, t := range reg.All() {
				n, err := stores(t.Prefix).EmailTokens().DeleteExpired(ctx)
				if err != nil {
					return fmt.Errorf("tenant %s: %w", t.Domain, err)
				}
				fmt.Printf("%s: %d tokens eliminados\n", t.Domain, n)
			}
			return nil
		},
	})

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
