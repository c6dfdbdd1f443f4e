package service

import (
	"context"

	"github.com/MKhiriev/go-track-gateway/models"
)

// TokenVerifier validates a raw credential token presented at handshake time
// and yields the authenticated identity bound to the connection.
//
// Verification failure is terminal for the connection attempt: the caller
// closes the socket without emitting any outbound event.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (models.Identity, error)
}
