package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-track-gateway/internal/config"
	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/models"
	"github.com/golang-jwt/jwt/v5"
)

// tokenVerifier is the concrete implementation of TokenVerifier.
// It checks HMAC-SHA256 signatures, expiry, and the issuer claim against the
// shared secret configured for the token issuing service, then maps the
// custom "role" claim onto the closed [models.Role] set.
type tokenVerifier struct {
	// signKey is the shared HMAC secret used to verify token signatures.
	signKey string

	// issuer is the expected "iss" claim. Tokens from any other issuer are
	// rejected.
	issuer string

	// logger is the structured logger used for diagnostic output.
	logger *logger.Logger
}

// NewTokenVerifier constructs a TokenVerifier from the auth configuration.
//
// The returned verifier is safe for concurrent use; all state is read-only
// after construction.
func NewTokenVerifier(cfg config.Auth, logger *logger.Logger) TokenVerifier {
	return &tokenVerifier{
		signKey: cfg.TokenSignKey,
		issuer:  cfg.TokenIssuer,
		logger:  logger,
	}
}

// Verify validates tokenString and extracts the connection identity.
//
// Validation includes:
//   - Signature verification with the configured HMAC key; non-HMAC signing
//     methods are rejected.
//   - Issuer (iss) and expiration (exp) claim checks.
//   - Subject (sub) claim presence.
//   - Role claim membership in the closed role set.
//
// Any failure is normalised to ErrInvalidCredential so callers never branch
// on low-level JWT errors; the underlying cause is logged for diagnostics.
func (v *tokenVerifier) Verify(ctx context.Context, tokenString string) (models.Identity, error) {
	log := logger.FromContext(ctx)

	if tokenString == "" {
		return models.Identity{}, ErrMissingCredential
	}

	claims := &models.TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return []byte(v.signKey), nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil {
		log.Debug().Err(err).Msg("credential verification failed")
		return models.Identity{}, ErrInvalidCredential
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		log.Debug().Err(err).Msg("credential has no subject")
		return models.Identity{}, ErrInvalidCredential
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		log.Debug().Err(err).Str("subject", subject).Msg("credential carries unknown role")
		return models.Identity{}, ErrInvalidCredential
	}

	return models.Identity{
		SubjectID: subject,
		Role:      role,
	}, nil
}
