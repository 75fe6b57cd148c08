package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// UploaderClaims are the JWT claims accepted by the upload API
type UploaderClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
