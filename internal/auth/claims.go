package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// UserID is the stable identifier everything downstream keys on: call
// records, presence registration and signaling event addressing.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	TokenType TokenType `json:"token_type"`
}
