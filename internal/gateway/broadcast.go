package gateway

import "github.com/MKhiriev/go-track-gateway/models"

// ToSubscribers delivers an event to the connections currently subscribed to
// a delivery. The subscriber set is snapshotted at send time.
func (g *Gateway) ToSubscribers(deliveryID string, event models.ServerEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, subscriber := range g.subscribersLocked(deliveryID) {
		g.deliver(subscriber, event)
	}
}

// ToAll delivers an event to every registered connection. Used for driver
// presence changes, which are globally visible.
func (g *Gateway) ToAll(event models.ServerEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.broadcastLocked(event)
}

// AnnounceDeliveryStatusChange notifies a delivery's subscribers that its
// status changed. Called by external command handlers (the CRUD services
// that own delivery state); the event is ephemeral and not stored.
func (g *Gateway) AnnounceDeliveryStatusChange(deliveryID, status, driverID string) {
	g.ToSubscribers(deliveryID, models.NewDeliveryStatusChangeEvent(deliveryID, status, driverID, g.now()))

	g.logger.Info().
		Str("delivery", deliveryID).
		Str("deliveryStatus", status).
		Msg("delivery status change announced")
}

// AnnounceDriverAssignment notifies a delivery's subscribers that a driver
// was assigned to it.
func (g *Gateway) AnnounceDriverAssignment(deliveryID, driverID string) {
	g.ToSubscribers(deliveryID, models.NewDriverAssignedEvent(deliveryID, driverID, g.now()))

	g.logger.Info().
		Str("delivery", deliveryID).
		Str("driver", driverID).
		Msg("driver assignment announced")
}
