package gateway

import "github.com/MKhiriev/go-track-gateway/models"

// Subscribe adds a connection to a delivery's subscriber set and queues the
// acknowledgment. Idempotent: re-subscribing an already-present pair changes
// nothing but is still acknowledged.
//
// After the acknowledgment the subscriber receives a snapshot replay of the
// cached position for that delivery, if one exists, so a newly-joined
// observer sees current state without waiting for the next driver report.
func (g *Gateway) Subscribe(connectionID, deliveryID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, ok := g.connections[connectionID]
	if !ok {
		return
	}

	subscribers, ok := g.subscriptions[deliveryID]
	if !ok {
		subscribers = make(map[string]struct{})
		g.subscriptions[deliveryID] = subscribers
	}
	subscribers[connectionID] = struct{}{}

	g.deliver(client, models.NewSubscribedEvent(deliveryID, g.now()))

	if record, ok := g.cachedPositionForDelivery(deliveryID); ok {
		g.deliver(client, models.NewLocationUpdateEvent(record))
	}

	g.logger.Debug().
		Str("connection", connectionID).
		Str("delivery", deliveryID).
		Int("subscribers", len(subscribers)).
		Msg("subscribed to delivery")
}

// Unsubscribe removes a connection from a delivery's subscriber set and
// queues the acknowledgment. Idempotent; the index entry is pruned when its
// last subscriber leaves so no delivery ever maps to an empty set.
func (g *Gateway) Unsubscribe(connectionID, deliveryID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	client, ok := g.connections[connectionID]
	if !ok {
		return
	}

	if subscribers, ok := g.subscriptions[deliveryID]; ok {
		delete(subscribers, connectionID)
		if len(subscribers) == 0 {
			delete(g.subscriptions, deliveryID)
		}
	}

	g.deliver(client, models.NewUnsubscribedEvent(deliveryID, g.now()))

	g.logger.Debug().
		Str("connection", connectionID).
		Str("delivery", deliveryID).
		Msg("unsubscribed from delivery")
}

// subscribersLocked snapshots the clients currently subscribed to a delivery
// and still present in the registry. The snapshot is taken at send time, so
// a fan-out is never affected by subscriptions added or removed concurrently
// with its own dispatch loop.
// Callers must hold g.mu.
func (g *Gateway) subscribersLocked(deliveryID string) []*Client {
	connectionIDs, ok := g.subscriptions[deliveryID]
	if !ok {
		return nil
	}

	clients := make([]*Client, 0, len(connectionIDs))
	for connectionID := range connectionIDs {
		if client, ok := g.connections[connectionID]; ok {
			clients = append(clients, client)
		}
	}

	return clients
}

// cachedPositionForDelivery finds the cached latest position whose record
// belongs to the given delivery. The cache is keyed by driver, so this scans
// the (small, online-drivers-sized) cache.
// Callers must hold g.mu.
func (g *Gateway) cachedPositionForDelivery(deliveryID string) (models.PositionRecord, bool) {
	for _, record := range g.positions {
		if record.DeliveryID == deliveryID {
			return record, true
		}
	}

	return models.PositionRecord{}, false
}
