package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   string
	Username string
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by callers.
type AccessTokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// DisplayName prefers the username and falls back to the user id.
func (c *AccessTokenClaims) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Username != "" {
		return c.Username
	}
	return c.UserID
}
