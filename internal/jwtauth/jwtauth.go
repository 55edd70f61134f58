// Package jwtauth signs and verifies the session tokens carried in cookies.
package jwtauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

// ErrInvalidToken is returned for any token that fails parsing or validation.
// The wrapped cause is meant for logs, never for responses.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the session claims. The signature proves the token was issued
// by this service; it does not prove the identity still exists.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IdentityID returns the identity ID from the claims (subject).
func (c *Claims) IdentityID() string {
	return c.Subject
}

// Config holds token signing configuration.
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Codec issues and verifies HS256 session tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewCodec creates a token codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "ecoroute"
	}
	return &Codec{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// TTL returns how long issued tokens stay valid.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Sign issues a token for the given identity.
func (c *Codec) Sign(subject, email, role string) (string, error) {
	now := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Email: email,
		Role:  role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", eris.Wrap(err, "jwtauth: sign token")
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry and returns the claims.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidToken, "jwtauth: %v", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, eris.Wrap(ErrInvalidToken, "jwtauth: missing email claim")
	}

	return claims, nil
}
