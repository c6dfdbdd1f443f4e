package gateway

import "github.com/MKhiriev/go-track-gateway/models"

// handleDriverStatus applies an explicit presence transition requested by a
// driver and announces it to every connection. A transition to the status
// the driver already has is acknowledged but not broadcast.
//
// Presence state machine per driver: offline → online → {online, busy} →
// offline. Transitions are driven only by driver_status messages and by
// disconnect (which forces offline, see Unregister). Presence changes are
// deliberately visible globally, not just to the driver's delivery
// subscribers.
func (g *Gateway) handleDriverStatus(client *Client, msg models.ClientMessage) {
	if !client.Identity.IsDriver() {
		g.sendError(client.ID, "only drivers may change presence status")
		return
	}

	// msg passed Validate, so the status parses.
	status, _ := models.ParseDriverStatus(msg.Status)
	driverID := client.Identity.SubjectID

	g.mu.Lock()
	defer g.mu.Unlock()

	current, ok := g.presence[driverID]
	if !ok {
		current = models.DriverOffline
	}

	if !current.CanTransition(status) {
		if c, ok := g.connections[client.ID]; ok {
			g.deliver(c, models.NewErrorEvent("invalid status transition", g.now()))
		}
		return
	}

	// Re-announcing the current status changes nothing; acknowledge it
	// without waking up every connection.
	if status == current {
		if c, ok := g.connections[client.ID]; ok {
			g.deliver(c, models.NewStatusAcknowledgedEvent(status, g.now()))
		}
		return
	}

	if status == models.DriverOffline {
		delete(g.presence, driverID)
	} else {
		g.presence[driverID] = status
	}

	if c, ok := g.connections[client.ID]; ok {
		g.deliver(c, models.NewStatusAcknowledgedEvent(status, g.now()))
	}
	g.broadcastLocked(models.NewDriverStatusChangeEvent(driverID, status, msg.Coordinates, g.now()))

	g.logger.Info().
		Str("driver", driverID).
		Str("driverStatus", string(status)).
		Msg("driver presence changed")
}

// DriverPresence reports the current presence status for a driver. Drivers
// that never announced themselves, or went offline, report DriverOffline.
func (g *Gateway) DriverPresence(driverID string) models.DriverStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	if status, ok := g.presence[driverID]; ok {
		return status
	}

	return models.DriverOffline
}
