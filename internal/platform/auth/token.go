// Package auth provides JWT authentication and role-based access control
// for the intake API. Tokens are HS256-signed and carry the bearer's role
// ("assistant" or "doctor") alongside the standard registered claims.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles recognized by the API.
const (
	RoleAssistant = "assistant"
	RoleDoctor    = "doctor"
	RoleAdmin     = "admin"
)

// Claims is the JWT payload issued to clinic staff.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

// GenerateToken signs a token for the given user valid for ttl.
func GenerateToken(secret string, userID uuid.UUID, role, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
		Name: name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry of a token and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Identity is the decoded {id, role} pair handed to downstream components.
type Identity struct {
	ID   uuid.UUID
	Role string
}

// IdentityFromClaims converts validated claims into an Identity.
func IdentityFromClaims(claims *Claims) (Identity, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid subject: %w", err)
	}
	if claims.Role == "" {
		return Identity{}, fmt.Errorf("token has no role")
	}
	return Identity{ID: id, Role: claims.Role}, nil
}
