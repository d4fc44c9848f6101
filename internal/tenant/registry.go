// Package tenant implementa el registro de tenants: resolución de host →
// tenant y su prefijo de storage.
//
// El registro se carga UNA vez al arrancar desde configuración tipada y
// validada; nunca se re-escanea por request y el prefijo jamás proviene de
// input del usuario.
package tenant

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// prefixRe valida prefijos de storage (nombre de schema en Postgres).
var prefixRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,30}$`)

// OAuthProviderConfig es la configuración de un provider OAuth por tenant.
type OAuthProviderConfig struct {
	Provider     string   `yaml:"provider"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURI  string   `yaml:"redirect_uri"`
	Scopes       []string `yaml:"scopes"` // vacío = defaults documentados del provider
	Enabled      bool     `yaml:"enabled"`
}

// Tenant identifica una propiedad frontend onboardeada.
type Tenant struct {
	Domain    string                `yaml:"domain"`
	Prefix    string                `yaml:"prefix"`
	Providers []OAuthProviderConfig `yaml:"providers"`
}

// Provider retorna la configuración de un provider habilitado del tenant.
func (t *Tenant) Provider(name string) (*OAuthProviderConfig, bool) {
	for i := range t.Providers {
		p := &t.Providers[i]
		if p.Provider == name && p.Enabled {
			return p, true
		}
	}
	return nil, false
}

// Registry resuelve hosts a tenants. Inmutable después de Load.
type Registry struct {
	byHost map[string]*Tenant
}

// registryFile es el documento YAML raíz.
type registryFile struct {
	Tenants []Tenant `yaml:"tenants"`
}

// Load lee y valida el archivo de tenants.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tenant registry: %w", err)
	}
	var doc registryFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("tenant registry: parse: %w", err)
	}
	return New(doc.Tenants)
}

// New construye un registro desde una lista ya parseada, validándola.
func New(tenants []Tenant) (*Registry, error) {
	r := &Registry{byHost: make(map[string]*Tenant, len(tenants))}
	prefixes := make(map[string]string, len(tenants))

	for i := range tenants {
		t := &tenants[i]
		t.Domain = strings.ToLower(strings.TrimSpace(t.Domain))
		if t.Domain == "" {
			return nil, fmt.Errorf("tenant registry: tenant sin domain")
		}
		if !prefixRe.MatchString(t.Prefix) {
			return nil, fmt.Errorf("tenant registry: prefijo inválido %q para %s", t.Prefix, t.Domain)
		}
		if _, dup := r.byHost[t.Domain]; dup {
			return nil, fmt.Errorf("tenant registry: domain duplicado %s", t.Domain)
		}
		if other, dup := prefixes[t.Prefix]; dup {
			return nil, fmt.Errorf("tenant registry: prefijo %q compartido por %s y %s", t.Prefix, other, t.Domain)
		}
		for _, p := range t.Providers {
			if !p.Enabled {
				continue
			}
			if p.ClientID == "" || p.ClientSecret == "" || p.RedirectURI == "" {
				return nil, fmt.Errorf("tenant registry: provider %s de %s habilitado pero incompleto", p.Provider, t.Domain)
			}
		}
		r.byHost[t.Domain] = t
		prefixes[t.Prefix] = t.Domain
	}
	return r, nil
}

// ErrUnknownHost indica que el host no corresponde a ningún tenant.
var ErrUnknownHost = fmt.Errorf("unknown tenant host")

// ResolveHost resuelve el host de un request (con o sin puerto) a su tenant.
// La resolución sucede una vez por request; el resultado es inmutable.
func (r *Registry) ResolveHost(host string) (*Tenant, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if t, ok := r.byHost[host]; ok {
		return t, nil
	}
	return nil, ErrUnknownHost
}

// All retorna los tenants registrados (para tooling de mantenimiento).
func (r *Registry) All() []*Tenant {
	out := make([]*Tenant, 0, len(r.byHost))
	for _, t := range r.byHost {
		out = append(out, t)
	}
	return out
}
