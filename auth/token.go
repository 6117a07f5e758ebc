package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/caloriecam-go/apperror"
	"github.com/user/caloriecam-go/config"
)

// TokenService issues and validates signed session tokens. It is stateless:
// the only state is the signing secret and the token lifetime, both fixed
// at construction. There is no revocation list; a token dies when it
// expires or when the secret is rotated.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a TokenService from the auth configuration.
func NewTokenService(cfg *config.AuthConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenDuration,
	}
}

// Issue creates a signed token for the given subject (username) expiring
// at now + the configured TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies a token's signature, algorithm and expiry, and returns
// its subject. Every rejection (malformed token, bad signature, unexpected
// algorithm, past expiry, missing subject) comes back as an AuthError.
func (s *TokenService) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.NewAuthError("token has expired", err)
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return "", apperror.NewAuthError("invalid token signature", err)
		}
		return "", apperror.NewAuthError("invalid token", err)
	}
	if !token.Valid {
		return "", apperror.NewAuthError("invalid token", nil)
	}
	if claims.Subject == "" {
		return "", apperror.NewAuthError("token has no subject", nil)
	}
	return claims.Subject, nil
}
