package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the identity service.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	ProfileID string   `json:"profile_id"`
	Email     string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller as seen by the analytics layer.
type Principal struct {
	UserID    string
	Role      UserRole
	ProfileID string
}

// Principal converts token claims into a Principal.
func (c *JWTClaims) Principal() Principal {
	if c == nil {
		return Principal{}
	}
	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	return Principal{UserID: userID, Role: c.Role, ProfileID: c.ProfileID}
}
