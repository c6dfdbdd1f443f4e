package gateway

import (
	"github.com/MKhiriev/go-track-gateway/models"
)

// Client is one live, authenticated connection. It exists from successful
// authentication until disconnect and is owned exclusively by the gateway's
// registry: the transport layer holds a pointer but never mutates it.
type Client struct {
	// ID is the opaque connection identifier, unique per live session.
	ID string

	// Identity is the authenticated principal. Immutable for the
	// connection's lifetime.
	Identity models.Identity

	// send is the buffered outbound event queue drained by the transport
	// write pump. Closed by the gateway on disconnect, never by the
	// transport.
	send chan models.ServerEvent
}

// Events returns the outbound event stream for this connection. The channel
// is closed when the connection is unregistered; the transport write pump
// must exit when that happens.
func (c *Client) Events() <-chan models.ServerEvent {
	return c.send
}
