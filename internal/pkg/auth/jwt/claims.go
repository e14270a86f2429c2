package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set issued by the identity service.
// The server treats UserID as opaque and pre-verified once the signature checks out.
type Payload struct {
	jwt.StandardClaims

	// UserID is the stable identifier of the authenticated user.
	UserID string `json:"uid"`
}
