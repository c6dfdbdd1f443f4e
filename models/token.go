package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the claim set the gateway expects inside a credential
// token. The issuing service (outside this repository) signs tokens with the
// shared HMAC key; the gateway only verifies them.
//
// On top of the registered claims (sub, exp, iat, iss) the issuer embeds a
// custom "role" claim carrying one of the closed [Role] values.
type TokenClaims struct {
	jwt.RegisteredClaims

	// Role is the principal's role as issued. Verified against the closed
	// role set during token verification.
	Role string `json:"role"`
}
