package http

import (
	"context"
	"net/http"

	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/utils"
	"github.com/MKhiriev/go-track-gateway/models"
)

// auth is an HTTP middleware guarding the operational API.
//
// It inspects the incoming "Authorization" header, extracts the bearer
// token, validates it via the token verifier, and — on success — stores the
// authenticated identity in the request context under [utils.IdentityCtxKey]
// before delegating to the next handler. Only admin identities may call the
// operational API; drivers and customers use the realtime endpoint.
//
// The middleware rejects requests with HTTP 401 Unauthorized when the header
// is absent or the token fails verification, and with HTTP 403 Forbidden
// when the token is valid but the role is not admin.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Err(ErrEmptyAuthorizationHeader).Send()
			http.Error(w, ErrEmptyAuthorizationHeader.Error(), http.StatusUnauthorized)
			return
		}

		tokenString, err := utils.ParseBearerToken(authHeader)
		if err != nil {
			log.Err(err).Send()
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		identity, err := h.verifier.Verify(ctx, tokenString)
		if err != nil {
			log.Err(err).Msg("error occurred during verifying token")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if identity.Role != models.RoleAdmin {
			log.Warn().Str("subject", identity.SubjectID).Msg("non-admin access to operational API rejected")
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		// Store the authenticated identity in the context so that downstream
		// handlers can retrieve it without re-parsing the token.
		ctx = context.WithValue(ctx, utils.IdentityCtxKey, identity)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
