package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mbenitez01/citadel/internal/tenant"
)

// GitHub usa OAuth 2.0 sin id_token: la identidad sale de la API de usuario,
// y el email puede requerir una llamada aparte (emails privados).
const (
	githubAuthEndpoint  = "https://github.com/login/oauth/authorize"
	githubTokenEndpoint = "https://github.com/login/oauth/access_token"
	githubUserEndpoint  = "https://api.github.com/user"
	githubEmailEndpoint = "https://api.github.com/user/emails"
)

// githubDefaultScopes se usan cuando el tenant no configura scopes.
var githubDefaultScopes = []string{"user:email", "read:user"}

type githubProvider struct {
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       []string

	http *http.Client
}

func newGitHub(cfg *tenant.OAuthProviderConfig) *githubProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = githubDefaultScopes
	}
	return &githubProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		scopes:       scopes,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *githubProvider) Name() string { return "github" }

func (p *githubProvider) AuthorizeURL(state string) string {
	u, _ := url.Parse(githubAuthEndpoint)
	q := u.Query()
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.redirectURI)
	q.Set("scope", strings.Join(p.scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

type githubTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *githubProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	form := url.Values{}
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, githubTokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: github token: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var tr githubTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: github token decode: %v", ErrUpstream, err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("%w: github: %s - %s", ErrUpstream, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: github: no access_token", ErrUpstream)
	}

	user, err := p.fetchUser(ctx, tr.AccessToken)
	if err != nil {
		return nil, err
	}

	email := user.Email
	verified := false
	if email == "" {
		// email privado: buscar el primario verificado en /user/emails
		email, verified, err = p.fetchPrimaryEmail(ctx, tr.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	first, last := splitName(user.Name, user.Login)
	return &ExternalIdentity{
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          strings.ToLower(email),
		FirstName:      first,
		LastName:       last,
		EmailVerified:  verified,
	}, nil
}

func (p *githubProvider) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubUserEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: github user: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: github user: status %d", ErrUpstream, resp.StatusCode)
	}
	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: github user decode: %v", ErrUpstream, err)
	}
	return &u, nil
}

func (p *githubProvider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubEmailEndpoint, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%w: github emails: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("%w: github emails: status %d", ErrUpstream, resp.StatusCode)
	}
	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", false, fmt.Errorf("%w: github emails decode: %v", ErrUpstream, err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, true, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, emails[0].Verified, nil
	}
	return "", false, fmt.Errorf("%w: github: sin email", ErrUpstream)
}

// splitName separa "Nombre Apellido" en (first, last); cae al login si falta.
func splitName(full, fallback string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return fallback, ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
