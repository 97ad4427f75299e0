package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the portal roles recognised by the platform.
type UserRole string

const (
	RoleStudent  UserRole = "STUDENT"
	RoleTrainer  UserRole = "TRAINER"
	RoleProvider UserRole = "PROVIDER"
	RoleRTO      UserRole = "RTO"
	RoleAdmin    UserRole = "ADMIN"
)

// JWTClaims is the identity asserted by the external auth layer. The engine
// only verifies tokens; issuance happens elsewhere.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
