// Package token issues and verifies the short-lived session tokens minted
// after a successful OTP verification. Tokens are stateless HS256 JWTs; the
// only persisted corroboration is that the identity still exists when the
// guard checks a token.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"assistente-api/internal/clock"
)

var (
	// ErrSigningKeyTooShort is returned when the HS256 signing key is less than 32 bytes.
	ErrSigningKeyTooShort = errors.New("HS256 signing key must be at least 32 bytes (256 bits)")

	// ErrTokenExpired is returned when the token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
)

type tokenContextKey struct{}

// Claims wraps the registered claims with the verified identity key.
type Claims struct {
	jwt.RegisteredClaims
	Phone string `json:"phone"`
}

// Issuer generates and verifies session tokens with a process-wide secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clocker
}

// NewIssuer constructs an Issuer. The secret length is checked here so a
// missing or weak secret fails at startup, not per request.
func NewIssuer(secret string, ttl time.Duration, clk clock.Clocker) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, ErrSigningKeyTooShort
	}

	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clk,
	}, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Generate creates a signed token bound to the verified phone number.
func (i *Issuer) Generate(phone string) (string, error) {
	now := i.clock.Now()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Phone: phone,
	}).SignedString(i.secret)
}

// Verify parses and validates a token and returns its claims. Expiry is
// reported as ErrTokenExpired; every other failure collapses to
// ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string) (Claims, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}

	if !parsed.Valid || claims.Phone == "" {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// GetAuth returns the claims stored in the context, if any.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(tokenContextKey{}).(Claims)
	if !ok {
		return nil
	}
	return &clm
}

// SetAuth stores verified claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, clm)
}
