package types

import "github.com/golang-jwt/jwt/v5"

// Claims is the payload of a session token: the username the bearer
// acts as, plus the registered claims (issuer, iat, jti, optional exp).
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}
