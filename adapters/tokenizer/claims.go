package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string   `json:"rid"` // ID of the refresh token
	Roles     []string `json:"roles,omitempty"`
}

// RefreshClaims carry the roles so a rotated session keeps them
type RefreshClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}
