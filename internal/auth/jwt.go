// Package auth holds the identity provider of the blog: session tokens,
// password hashing, the optional GitHub sign-in and the HTTP middleware that
// turns a request into an acting user ID.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "blog-platform"

// ErrInvalidToken covers every reason a token is refused: bad signature,
// wrong issuer, expiry, missing subject.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService issues and validates HS256 session tokens whose subject is the
// user ID.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService needs a secret of at least 16 characters. ttl is the
// lifetime of issued tokens.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long issued tokens stay valid. Cookies use it as MaxAge.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate issues a token for userID valid for the service TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.generate(userID, time.Now(), s.ttl)
}

func (s *TokenService) generate(userID string, issued time.Time, ttl time.Duration) (string, error) {
	c := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		Issuer:    issuer,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate checks tokenStr and returns the user ID it was issued for. Only
// HS256 with our issuer is accepted; the expiry claim is mandatory.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || c.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return c.Subject, nil
}
