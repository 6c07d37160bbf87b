package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether the token is a JWT with an exp claim in the
// past. Signature verification belongs to the backend, so the claims are
// parsed unverified here; tokens that are not JWTs, or carry no expiry,
// are never considered expired client-side.
func TokenExpired(token string) bool {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
