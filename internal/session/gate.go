// Package session decides which callers may submit and administer requests.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ecoroute/internal/identity"
	"ecoroute/internal/jwtauth"
)

// ErrUnauthenticated is the only error Authorize returns. The wrapped cause
// is for logs; callers must not tell clients which check failed.
var ErrUnauthenticated = errors.New("unauthenticated")

// Kind is the kind of session being checked.
type Kind string

const (
	KindReporter      Kind = "reporter"
	KindAdministrator Kind = "administrator"
)

func (k Kind) role() identity.Role {
	if k == KindAdministrator {
		return identity.RoleAdministrator
	}
	return identity.RoleReporter
}

// TokenVerifier verifies a signed session token. *jwtauth.Codec satisfies it.
type TokenVerifier interface {
	Verify(token string) (*jwtauth.Claims, error)
}

// IdentityLookup re-fetches an identity. *identity.Manager satisfies it.
type IdentityLookup interface {
	GetByEmail(ctx context.Context, email string, role identity.Role) (*identity.Identity, error)
}

// Option configures a Gate.
type Option func(*Gate)

// WithAdminRevalidate makes administrator sessions re-fetch the identity
// like reporter sessions do. Off by default: a valid signature is enough.
func WithAdminRevalidate(enabled bool) Option {
	return func(g *Gate) {
		g.adminRevalidate = enabled
	}
}

// WithSecureCookies marks cookies written by the gate as Secure.
func WithSecureCookies(enabled bool) Option {
	return func(g *Gate) {
		g.secureCookies = enabled
	}
}

// Gate authorizes session tokens.
type Gate struct {
	tokens          TokenVerifier
	identities      IdentityLookup
	adminRevalidate bool
	secureCookies   bool
}

// NewGate creates a Gate.
func NewGate(tokens TokenVerifier, identities IdentityLookup, opts ...Option) *Gate {
	g := &Gate{tokens: tokens, identities: identities}
	for _, o := range opts {
		o(g)
	}
	return g
}

// AdminRevalidate reports whether administrator sessions hit the store.
func (g *Gate) AdminRevalidate() bool {
	return g.adminRevalidate
}

// Authorize resolves token to an identity of the given kind.
// Every failure is ErrUnauthenticated.
func (g *Gate) Authorize(ctx context.Context, kind Kind, token string) (*identity.Identity, error) {
	if kind != KindReporter && kind != KindAdministrator {
		return nil, eris.Wrapf(ErrUnauthenticated, "unknown session kind %q", kind)
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, eris.Wrapf(ErrUnauthenticated, "%v", err)
	}
	if identity.Role(claims.Role) != kind.role() {
		return nil, eris.Wrapf(ErrUnauthenticated, "role %q presented for %s session", claims.Role, kind)
	}

	if kind == KindAdministrator && !g.adminRevalidate {
		return identityFromClaims(claims), nil
	}

	ident, err := g.identities.GetByEmail(ctx, claims.Email, kind.role())
	if err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			zap.L().Error("session lookup failed",
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
		return nil, eris.Wrapf(ErrUnauthenticated, "lookup %s: %v", kind, err)
	}
	return ident, nil
}

// identityFromClaims builds the identity a stateless administrator session carries.
func identityFromClaims(c *jwtauth.Claims) *identity.Identity {
	ident := &identity.Identity{
		Email: c.Email,
		Role:  identity.Role(c.Role),
	}
	if id, err := uuid.Parse(c.IdentityID()); err == nil {
		ident.ID = id
	}
	return ident
}
