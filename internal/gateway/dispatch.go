package gateway

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-track-gateway/models"
)

// HandleRaw is the protocol boundary for one inbound frame from a registered
// connection. It decodes and validates the message, then dispatches it to
// the owning component. Malformed frames get exactly one error event and
// cause no state mutation.
//
// The transport calls HandleRaw from the connection's read loop, so a single
// connection's messages are processed in arrival order; the ordering of
// messages across different connections is unspecified.
func (g *Gateway) HandleRaw(ctx context.Context, client *Client, data []byte) {
	var msg models.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		g.sendError(client.ID, "malformed message")
		return
	}

	if err := msg.Validate(); err != nil {
		g.sendError(client.ID, err.Error())
		return
	}

	switch msg.Type {
	case models.MsgSubscribeDelivery:
		g.Subscribe(client.ID, msg.DeliveryID)
	case models.MsgUnsubscribeDelivery:
		g.Unsubscribe(client.ID, msg.DeliveryID)
	case models.MsgLocationUpdate:
		g.ingestLocation(ctx, client, msg)
	case models.MsgDriverStatus:
		g.handleDriverStatus(client, msg)
	case models.MsgPing:
		g.sendPong(client.ID)
	case models.MsgConnect:
		// The handshake already happened; a second connect is a protocol
		// violation.
		g.sendError(client.ID, "already connected")
	}
}

func (g *Gateway) sendPong(connectionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.connections[connectionID]; ok {
		g.deliver(client, models.NewPongEvent(g.now()))
	}
}
