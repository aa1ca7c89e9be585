package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessExpiry reads 'exp' claim without verifying the signature
// Verification is the backend's job; zero time means unknown
func accessExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}

	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}

	return claims.ExpiresAt.Time
}
