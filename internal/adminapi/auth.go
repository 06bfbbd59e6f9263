package adminapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers any bearer token that fails signature, expiry, or
// claim validation.
var ErrInvalidToken = errors.New("adminapi: invalid or expired token")

// Claims identifies the admin principal a token was issued to. There is a
// single role (admin); this exists to carry an audit-friendly subject
// rather than to distinguish privilege levels.
type Claims struct {
	jwt.RegisteredClaims
	Subject string `json:"sub"`
}

// TokenService issues and validates the bearer tokens ncamdctl presents to
// the admin API: HS256, RegisteredClaims, with a minimum secret length.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService returns a service signing with secret, which must be at
// least 16 bytes (internal/config's admin.jwt_secret validator enforces
// this at load time).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("adminapi: jwt secret must be at least 16 bytes")
	}
	return &TokenService{secret: []byte(secret), issuer: "ncamd-admin"}, nil
}

// IssueToken mints a bearer token for subject valid for ttl.
func (s *TokenService) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Subject: subject,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies tokenString, returning its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
