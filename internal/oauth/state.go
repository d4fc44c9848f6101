package oauth

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/mbenitez01/citadel/internal/security/token"
)

// stateTTL acota la vida del state entre authorize y callback.
const stateTTL = 10 * time.Minute

// StateSigner firma y verifica el parámetro state del flujo OAuth.
// El state es un JWT HS256 con tenant, provider y nonce: el callback solo
// acepta states emitidos por este servicio para ese (tenant, provider).
type StateSigner struct {
	secret []byte
}

// NewStateSigner crea un signer con el secreto compartido del servicio.
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// StateClaims es el contenido del state.
type StateClaims struct {
	TenantDomain string `json:"tnt"`
	Provider     string `json:"prv"`
	Nonce        string `json:"nce"`
	jwtv5.RegisteredClaims
}

// Sign emite un state nuevo para (tenant, provider).
func (s *StateSigner) Sign(tenantDomain, provider string) (string, error) {
	nonce, err := token.GenerateOpaque(16)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	claims := StateClaims{
		TenantDomain: tenantDomain,
		Provider:     provider,
		Nonce:        nonce,
		RegisteredClaims: jwtv5.RegisteredClaims{
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify valida un state y que corresponda al (tenant, provider) esperado.
func (s *StateSigner) Verify(state, tenantDomain, provider string) error {
	claims := &StateClaims{}
	tk, err := jwtv5.ParseWithClaims(state, claims, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tk.Valid {
		return fmt.Errorf("invalid state: %w", err)
	}
	if claims.TenantDomain != tenantDomain || claims.Provider != provider {
		return fmt.Errorf("state does not match tenant/provider")
	}
	return nil
}
