// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package gateway

import (
	"context"

	"github.com/MKhiriev/go-track-gateway/models"
)

// ingestLocation runs the location ingest pipeline for one report:
//
//  1. Authorize: only drivers may report positions. Anyone else gets exactly
//     one error event and nothing changes.
//  2. Build the position record, discarding any client-supplied timestamp in
//     favour of the server clock.
//  3. Persist synchronously. Persistence failure aborts fail-closed: no
//     cache mutation, no broadcast, one error event to the sender —
//     subscribers never see data that did not durably land.
//  4. Update the position cache for the driver.
//  5. Snapshot the delivery's subscriber set — after persistence, immediately
//     before sending — and deliver the record to each subscriber still in
//     the registry.
//  6. Acknowledge the sender (skipped via registry lookup if it disconnected
//     while the write was in flight).
//
// The persistence write deliberately happens outside the gateway mutex: it
// is the pipeline's only suspension point, and other connections keep being
// served while it runs. An ingest, once begun, always runs to completion.
func (g *Gateway) ingestLocation(ctx context.Context, client *Client, msg models.ClientMessage) {
	if !client.Identity.IsDriver() {
		g.sendError(client.ID, "only drivers may report positions")
		return
	}

	record := models.PositionRecord{
		DeliveryID:      msg.DeliveryID,
		DriverID:        client.Identity.SubjectID,
		Coordinates:     *msg.Coordinates,
		Speed:           msg.Speed,
		Heading:         msg.Heading,
		ServerTimestamp: g.now(),
	}

	persisted, err := g.positionStore.Create(ctx, record)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("connection", client.ID).
			Str("delivery", record.DeliveryID).
			Str("driver", record.DriverID).
			Msg("position persistence failed, update not broadcast")
		g.sendError(client.ID, "failed to persist location update")
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.positions[persisted.DriverID] = persisted

	event := models.NewLocationUpdateEvent(persisted)
	for _, subscriber := range g.subscribersLocked(persisted.DeliveryID) {
		g.deliver(subscriber, event)
	}

	// Registry lookup at send time: the sender may have disconnected while
	// the persistence write was in flight.
	if sender, ok := g.connections[client.ID]; ok {
		g.deliver(sender, models.NewLocationAcknowledgedEvent(persisted.DeliveryID, g.now()))
	}
}

// CachedPosition returns the latest persisted position for a driver, if the
// driver has reported since connecting.
func (g *Gateway) CachedPosition(driverID string) (models.PositionRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	record, ok := g.positions[driverID]
	return record, ok
}

// sendError queues a single error event for a connection, if it is still
// registered. Errors are connection-local: nothing else changes.
func (g *Gateway) sendError(connectionID, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.connections[connectionID]; ok {
		g.deliver(client, models.NewErrorEvent(message, g.now()))
	}
}
