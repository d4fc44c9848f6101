// Package oauth implementa la federación de identidades externas por tenant.
//
// Cada provider se construye desde la configuración validada del tenant
// (client id/secret, redirect URI y scopes propios del tenant); no hay
// descubrimiento ambiental por variables de entorno.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mbenitez01/citadel/internal/tenant"
)

// ErrUpstream marca fallos del provider externo (denegación, code vencido,
// red). Son recuperables: terminan el callback, nunca crashean.
var ErrUpstream = errors.New("oauth: upstream error")

// ErrUnknownProvider indica un provider no soportado o no habilitado.
var ErrUnknownProvider = errors.New("oauth: unknown provider")

// ExternalIdentity es la identidad obtenida del provider tras el exchange.
type ExternalIdentity struct {
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	EmailVerified  bool
}

// Provider define el flujo authorize/callback contra un provider externo.
type Provider interface {
	// Name retorna el nombre del provider ("google", "github").
	Name() string

	// AuthorizeURL construye la URL de consentimiento con el state dado.
	AuthorizeURL(state string) string

	// Exchange canjea el authorization code por la identidad externa.
	// Un intento acotado; fallos → ErrUpstream.
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// New construye un Provider desde la configuración del tenant.
func New(cfg *tenant.OAuthProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "google":
		return newGoogle(cfg), nil
	case "github":
		return newGitHub(cfg), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
}
