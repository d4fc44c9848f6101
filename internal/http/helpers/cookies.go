package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookieOpts parametriza las cookies de sesión y CSRF por configuración.
type CookieOpts struct {
	Name     string
	SameSite string // Lax | Strict | None
	Secure   bool
	TTL      time.Duration
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SetSessionCookie escribe la cookie de sesión (HttpOnly siempre).
func SetSessionCookie(w http.ResponseWriter, opts CookieOpts, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: parseSameSite(opts.SameSite),
		MaxAge:   int(opts.TTL / time.Second),
	})
}

// ClearSessionCookie borra la cookie de sesión.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOpts) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: parseSameSite(opts.SameSite),
		MaxAge:   -1,
	})
}

// SetCSRFCookie escribe la cookie del doble-submit. No es HttpOnly: el
// frontend la lee para repetir el valor en el header X-CSRF-Token.
func SetCSRFCookie(w http.ResponseWriter, opts CookieOpts, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: false,
		Secure:   opts.Secure,
		SameSite: parseSameSite(opts.SameSite),
		MaxAge:   int(opts.TTL / time.Second),
	})
}

// SessionToken extrae el token de sesión: primero Authorization: Bearer,
// después la cookie.
func SessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
