// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package gateway

import (
	"sync"
	"time"

	"github.com/MKhiriev/go-track-gateway/internal/config"
	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/store"
	"github.com/MKhiriev/go-track-gateway/internal/utils"
	"github.com/MKhiriev/go-track-gateway/models"
)

// Gateway owns all realtime state: live connections, delivery
// subscriptions, cached driver positions, and driver presence. Every
// mutation goes through its exported operations under one mutex.
//
// Outbound delivery happens while the mutex is held, into buffered
// per-connection channels, which keeps two invariants cheap to maintain:
// events are never written to a closed channel (close also happens under
// the mutex, after registry removal), and a fan-out always observes a
// consistent subscriber snapshot.
type Gateway struct {
	mu sync.Mutex

	// connections is the Connection Registry: connection id → live client.
	connections map[string]*Client

	// subscriptions is the Subscription Index: delivery id → set of
	// connection ids. No delivery id ever maps to an empty set; the entry
	// is pruned when its last member leaves.
	subscriptions map[string]map[string]struct{}

	// positions is the Driver Position Cache: driver id → latest persisted
	// record. Mutated only by the ingest pipeline and the disconnect
	// cascade.
	positions map[string]models.PositionRecord

	// presence is the current driver status for drivers that are not
	// offline. Absence means offline.
	presence map[string]models.DriverStatus

	positionStore store.PositionRepository
	ids           *utils.UUIDGenerator
	logger        *logger.Logger

	sendBufferSize int

	// now is the authoritative server clock, injectable for tests.
	now func() time.Time
}

// NewGateway constructs a Gateway backed by the given durable position
// store.
func NewGateway(positionStore store.PositionRepository, cfg config.Gateway, log *logger.Logger) *Gateway {
	bufferSize := cfg.SendBufferSize
	if bufferSize <= 0 {
		bufferSize = 64
	}

	return &Gateway{
		connections:    make(map[string]*Client),
		subscriptions:  make(map[string]map[string]struct{}),
		positions:      make(map[string]models.PositionRecord),
		presence:       make(map[string]models.DriverStatus),
		positionStore:  positionStore,
		ids:            utils.NewUUIDGenerator(),
		logger:         log,
		sendBufferSize: bufferSize,
		now:            time.Now,
	}
}

// Register creates a connection for an authenticated identity, adds it to
// the registry, and queues the connected acknowledgment. It is called
// exactly once per connection, immediately after successful authentication.
func (g *Gateway) Register(identity models.Identity) *Client {
	client := &Client{
		ID:       g.ids.Generate(),
		Identity: identity,
		send:     make(chan models.ServerEvent, g.sendBufferSize),
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.connections[client.ID] = client
	g.deliver(client, models.NewConnectedEvent(identity.SubjectID, g.now()))

	g.logger.Info().
		Str("connection", client.ID).
		Str("subject", identity.SubjectID).
		Str("connRole", string(identity.Role)).
		Msg("connection registered")

	return client
}

// Unregister removes a connection and runs the disconnect cascade:
// the connection leaves the registry and every subscription entry (pruning
// entries that become empty), and — if the identity was a driver — its
// cached position is dropped and a presence-offline event goes to all
// remaining connections.
//
// Unregister is idempotent; calling it for an unknown connection id is a
// no-op.
func (g *Gateway) Unregister(connectionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, ok := g.connections[connectionID]
	if !ok {
		return
	}

	delete(g.connections, connectionID)
	close(client.send)

	for deliveryID, subscribers := range g.subscriptions {
		delete(subscribers, connectionID)
		if len(subscribers) == 0 {
			delete(g.subscriptions, deliveryID)
		}
	}

	if client.Identity.IsDriver() {
		driverID := client.Identity.SubjectID
		delete(g.positions, driverID)
		delete(g.presence, driverID)
		g.broadcastLocked(models.NewDriverStatusChangeEvent(driverID, models.DriverOffline, nil, g.now()))
	}

	g.logger.Info().
		Str("connection", connectionID).
		Str("subject", client.Identity.SubjectID).
		Msg("connection unregistered")
}

// ConnectedClientCount reports the number of live registered connections.
func (g *Gateway) ConnectedClientCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.connections)
}

// ActiveSubscriptions reports the current subscriber count per delivery.
// Deliveries without subscribers do not appear.
func (g *Gateway) ActiveSubscriptions() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	counts := make(map[string]int, len(g.subscriptions))
	for deliveryID, subscribers := range g.subscriptions {
		counts[deliveryID] = len(subscribers)
	}

	return counts
}

// Shutdown unregisters every live connection, running each disconnect
// cascade. Used on graceful server stop.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	ids := make([]string, 0, len(g.connections))
	for id := range g.connections {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	for _, id := range ids {
		g.Unregister(id)
	}
}

// deliver queues an event for one client without blocking. A consumer whose
// buffer is full loses the event; the next one will catch it up.
// Callers must hold g.mu and must have verified that the client is still
// registered (or was just created under the same lock).
func (g *Gateway) deliver(client *Client, event models.ServerEvent) {
	select {
	case client.send <- event:
	default:
		g.logger.Warn().
			Str("connection", client.ID).
			Str("event", string(event.Type)).
			Msg("send buffer full, event dropped")
	}
}

// broadcastLocked fans an event out to every registered connection.
// Callers must hold g.mu.
func (g *Gateway) broadcastLocked(event models.ServerEvent) {
	for _, client := range g.connections {
		g.deliver(client, event)
	}
}
