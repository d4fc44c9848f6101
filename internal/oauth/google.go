package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/mbenitez01/citadel/internal/tenant"
)

// Google OIDC. El exchange devuelve un id_token firmado RS256 que se
// verifica contra el JWKS publicado por Google.
const (
	googleAuthEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint = "https://oauth2.googleapis.com/token"
	googleJWKSEndpoint  = "https://www.googleapis.com/oauth2/v3/certs"
	googleIssuer        = "https://accounts.google.com"
)

// googleDefaultScopes se usan cuando el tenant no configura scopes.
var googleDefaultScopes = []string{"openid", "email", "profile"}

type googleProvider struct {
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       []string

	http *http.Client

	mu      sync.Mutex
	jwks    map[string]*rsa.PublicKey
	jwksExp time.Time
}

func newGoogle(cfg *tenant.OAuthProviderConfig) *googleProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = googleDefaultScopes
	}
	return &googleProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		scopes:       scopes,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *googleProvider) Name() string { return "google" }

func (p *googleProvider) AuthorizeURL(state string) string {
	u, _ := url.Parse(googleAuthEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.redirectURI)
	q.Set("scope", strings.Join(p.scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type googleIDClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	jwtv5.RegisteredClaims
}

func (p *googleProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google token: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var tr googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: google token decode: %v", ErrUpstream, err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("%w: google: %s - %s", ErrUpstream, tr.Error, tr.ErrorDesc)
	}
	if tr.IDToken == "" {
		return nil, fmt.Errorf("%w: google: no id_token", ErrUpstream)
	}

	claims := &googleIDClaims{}
	tk, err := jwtv5.ParseWithClaims(tr.IDToken, claims, p.keyfunc(ctx),
		jwtv5.WithIssuer(googleIssuer),
		jwtv5.WithAudience(p.clientID),
		jwtv5.WithValidMethods([]string{"RS256"}),
	)
	if err != nil || !tk.Valid {
		return nil, fmt.Errorf("%w: google id_token verify: %v", ErrUpstream, err)
	}

	return &ExternalIdentity{
		ProviderUserID: claims.Subject,
		Email:          strings.ToLower(claims.Email),
		FirstName:      claims.GivenName,
		LastName:       claims.FamilyName,
		EmailVerified:  claims.EmailVerified,
	}, nil
}

// keyfunc resuelve la clave RSA por kid desde el JWKS cacheado.
func (p *googleProvider) keyfunc(ctx context.Context) jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("id_token sin kid")
		}
		keys, err := p.loadJWKS(ctx)
		if err != nil {
			return nil, err
		}
		key, ok := keys[kid]
		if !ok {
			// kid desconocido: forzar refresh una vez (rotación de claves)
			keys, err = p.refreshJWKS(ctx)
			if err != nil {
				return nil, err
			}
			if key, ok = keys[kid]; !ok {
				return nil, fmt.Errorf("kid %s no está en el JWKS", kid)
			}
		}
		return key, nil
	}
}

func (p *googleProvider) loadJWKS(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	p.mu.Lock()
	if p.jwks != nil && time.Now().Before(p.jwksExp) {
		keys := p.jwks
		p.mu.Unlock()
		return keys, nil
	}
	p.mu.Unlock()
	return p.refreshJWKS(ctx)
}

type jwksDoc struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (p *googleProvider) refreshJWKS(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleJWKSEndpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google jwks: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var doc jwksDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: google jwks decode: %v", ErrUpstream, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(new(big.Int).SetBytes(eb).Int64()),
		}
	}

	p.mu.Lock()
	p.jwks = keys
	p.jwksExp = time.Now().Add(time.Hour)
	p.mu.Unlock()
	return keys, nil
}
