package auth

import (
	"errors"
	"fmt"

	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/messagely/messagely/config"
	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/types"
)

// TokenService issues and verifies the stateless session tokens binding
// a request to a username. Tokens are HS256-signed with the configured
// secret; nothing is stored server-side, so logout is client-side
// discard and validity is decided entirely at verification time.
type TokenService struct {
	cfg config.AuthConfig
}

func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// Issue produces a signed token embedding the username. The exp claim
// is only set when a TTL is configured.
func (s *TokenService) Issue(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("token subject is required: %w", api.ErrBadRequest)
	}

	now := time.Now()
	claims := types.Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.cfg.Issuer,
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	if s.cfg.TokenTTL != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.cfg.TokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature (and expiry, when present) and returns the
// embedded username. This is the sole authentication gate: every
// protected operation trusts the identity it returns.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", fmt.Errorf("token has expired: %w", api.ErrUnauthenticated)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", fmt.Errorf("malformed token: %w", api.ErrUnauthenticated)
		default:
			return "", fmt.Errorf("invalid token: %w", api.ErrUnauthenticated)
		}
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token: %w", api.ErrUnauthenticated)
	}
	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return "", fmt.Errorf("invalid token issuer: %w", api.ErrUnauthenticated)
	}
	if claims.Username == "" {
		return "", fmt.Errorf("token carries no identity: %w", api.ErrUnauthenticated)
	}
	return claims.Username, nil
}
