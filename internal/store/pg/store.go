// Package pg implementa los repositorios del dominio sobre PostgreSQL.
//
// Todos los tenants comparten un pool físico; cada TenantStore queda ligado
// al schema del tenant (su prefijo de storage, validado por el registro).
// Las operaciones que requieren atomicidad (claim de tokens, contador de
// lockout) son UPDATEs condicionales en la base, nunca locks en proceso.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mbenitez01/citadel/internal/domain/repository"
)

// Config configura el pool de conexiones.
type Config struct {
	DSN      string
	MaxConns int32
}

// NewPool crea el pool compartido.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	return pool, nil
}

// TenantStore agrupa los repositorios de la partición de UN tenant.
type TenantStore struct {
	users         repository.UserRepository
	sessions      repository.SessionRepository
	emailTokens   repository.EmailTokenRepository
	identities    repository.IdentityRepository
	subscriptions repository.SubscriptionRepository
}

// NewTenantStore construye los repositorios ligados al schema dado.
// El prefijo DEBE provenir del registro de tenants, que ya lo validó contra
// ^[a-z][a-z0-9_]{0,30}$; jamás de input del request.
func NewTenantStore(pool *pgxpool.Pool, prefix string) *TenantStore {
	return &TenantStore{
		users:         &userRepo{pool: pool, schema: prefix},
		sessions:      &sessionRepo{pool: pool, schema: prefix},
		emailTokens:   &emailTokenRepo{pool: pool, schema: prefix},
		identities:    &identityRepo{pool: pool, schema: prefix},
		subscriptions: &subscriptionRepo{pool: pool, schema: prefix},
	}
}

func (s *TenantStore) Users() repository.UserRepository                 { return s.users }
func (s *TenantStore) Sessions() repository.SessionRepository           { return s.sessions }
func (s *TenantStore) EmailTokens() repository.EmailTokenRepository     { return s.emailTokens }
func (s *TenantStore) Identities() repository.IdentityRepository        { return s.identities }
func (s *TenantStore) Subscriptions() repository.SubscriptionRepository { return s.subscriptions }
