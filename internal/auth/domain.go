package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shopledger/shopledger/internal/shared"
)

// Role is the coarse permission carried by a token.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Claims is the signed payload of a role token.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Token is returned to clients after a passkey exchange.
type Token struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	// ErrInvalidPasskey indicates the passkey matched no role.
	ErrInvalidPasskey = fmt.Errorf("%w: invalid passkey", shared.ErrUnauthorized)
	// ErrInvalidToken indicates a missing, malformed, expired or forged token.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", shared.ErrUnauthorized)
	// ErrRoleDenied indicates a valid token whose role is not allowed.
	ErrRoleDenied = fmt.Errorf("%w: role not permitted", shared.ErrForbidden)
)
