package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles accepted by the API.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleDispatcher UserRole = "DISPATCHER"
	RoleViewer     UserRole = "VIEWER"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleDispatcher, RoleViewer:
		return true
	default:
		return false
	}
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller stored on the request context.
type Principal struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}
