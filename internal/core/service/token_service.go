package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskhub/task-api/internal/core/domain"
	"github.com/taskhub/task-api/internal/core/ports"
)

const defaultTokenTTL = 15 * time.Minute

// tokenClaims is the JWT payload: subject id and role on top of the
// registered claims.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed tokens. The signing secret
// and TTL are injected at construction; there is no ambient global state.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService validates the injected configuration and returns a ready
// service. The secret must be non-empty and the TTL positive.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token service: signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token bound to the given subject and role, expiring
// after the configured TTL.
func (s *TokenService) Issue(subject, role string) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses and validates a token string. Every rejection (bad
// signature, unexpected algorithm, malformed payload, expired) is reported
// as the single domain.ErrInvalidToken so verification internals never leak
// to callers.
func (s *TokenService) Verify(tokenString string) (ports.TokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}

	if claims.Subject == "" || !domain.ValidRole(claims.Role) {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}

	return ports.TokenClaims{Subject: claims.Subject, Role: claims.Role}, nil
}
