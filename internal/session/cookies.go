package session

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Cookie names and login entry points per session kind.
const (
	ReporterCookie = "token"
	AdminCookie    = "adminToken"

	ReporterLoginPath = "/reporters/login"
	AdminLoginPath    = "/admin/login"
)

// ErrNoToken is returned when the request carries no session token.
var ErrNoToken = errors.New("no session token")

// CookieName returns the cookie that carries this kind's token.
func (k Kind) CookieName() string {
	if k == KindAdministrator {
		return AdminCookie
	}
	return ReporterCookie
}

// LoginPath returns where unauthenticated callers are sent.
func (k Kind) LoginPath() string {
	if k == KindAdministrator {
		return AdminLoginPath
	}
	return ReporterLoginPath
}

// TokenFromRequest reads the session cookie, falling back to an
// "Authorization: Bearer <token>" header for non-browser clients.
func TokenFromRequest(r *http.Request, kind Kind) (string, error) {
	if c, err := r.Cookie(kind.CookieName()); err == nil && c.Value != "" {
		return c.Value, nil
	}

	const prefix = "Bearer "
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, prefix) {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SetCookie stores token in the kind's session cookie.
func (g *Gate) SetCookie(w http.ResponseWriter, kind Kind, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     kind.CookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the kind's session cookie.
func (g *Gate) ClearCookie(w http.ResponseWriter, kind Kind) {
	http.SetCookie(w, &http.Cookie{
		Name:     kind.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
