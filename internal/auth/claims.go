package auth

import (
	"time"

	"github.com/verbetes/verbete-server/internal/domain"
)

// AccessClaims are the claims carried by a PASETO access token. v4.local
// tokens are encrypted, so clients cannot read or alter them.
type AccessClaims struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name,omitempty"`
	Role   domain.Role `json:"role"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Principal returns the user the token was issued to.
func (c *AccessClaims) Principal() domain.Principal {
	return domain.Principal{UserID: c.UserID, Name: c.Name, Role: c.Role}
}
