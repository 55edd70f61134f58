package session

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"ecoroute/internal/identity"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// IdentityContextKey is the context key for the authorized identity.
const IdentityContextKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying ident.
func WithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, ident)
}

// IdentityFromContext retrieves the identity attached by Require.
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	ident, ok := ctx.Value(IdentityContextKey).(*identity.Identity)
	return ident, ok && ident != nil
}

// RequireReporter gates a handler on a reporter session.
func (g *Gate) RequireReporter() func(http.Handler) http.Handler {
	return g.Require(KindReporter)
}

// RequireAdministrator gates a handler on an administrator session.
func (g *Gate) RequireAdministrator() func(http.Handler) http.Handler {
	return g.Require(KindAdministrator)
}

// Require returns middleware that authorizes the request's token.
// On failure the cookie is cleared and the caller is redirected (303)
// to the kind's login path.
func (g *Gate) Require(kind Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := TokenFromRequest(r, kind)
			if err == nil {
				var ident *identity.Identity
				ident, err = g.Authorize(r.Context(), kind, token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
					return
				}
			}

			zap.L().Debug("session rejected",
				zap.String("kind", string(kind)),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			g.ClearCookie(w, kind)
			http.Redirect(w, r, kind.LoginPath(), http.StatusSeeOther)
		})
	}
}
