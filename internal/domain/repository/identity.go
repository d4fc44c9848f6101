package repository

import (
	"context"
	"time"
)

// OAuthIdentity vincula una identidad externa con exactamente un usuario
// local. La fila es inmutable para (provider, provider_user_id): en logins
// posteriores se busca, nunca se re-crea.
type OAuthIdentity struct {
	ID             string
	Provider       string
	ProviderUserID string
	UserID         string
	CreatedAt      time.Time
}

// ResolveIdentityInput contiene la identidad externa obtenida del provider.
type ResolveIdentityInput struct {
	Provider       string
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	EmailVerified  bool
}

// IdentityRepository define operaciones sobre identidades OAuth de un tenant.
type IdentityRepository interface {
	// GetByProvider busca una identidad. Retorna ErrNotFound si no existe.
	GetByProvider(ctx context.Context, provider, providerUserID string) (*OAuthIdentity, error)

	// Resolve aplica el orden de resolución del callback en UNA transacción:
	//  (a) identidad existente → retorna su usuario vinculado;
	//  (b) usuario local con el mismo email → vincula la identidad;
	//  (c) ninguno → crea usuario nuevo + identidad.
	// El índice único (provider, provider_user_id) garantiza que un callback
	// repetido nunca duplica filas.
	Resolve(ctx context.Context, input ResolveIdentityInput) (userID string, isNewUser bool, err error)
}
