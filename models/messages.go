// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"errors"
	"time"
)

// MessageType discriminates the wire messages exchanged over a gateway
// WebSocket connection.
type MessageType string

// Inbound message types (client → gateway).
const (
	MsgConnect             MessageType = "connect"
	MsgSubscribeDelivery   MessageType = "subscribe_delivery"
	MsgUnsubscribeDelivery MessageType = "unsubscribe_delivery"
	MsgLocationUpdate      MessageType = "location_update"
	MsgDriverStatus        MessageType = "driver_status"
	MsgPing                MessageType = "ping"
)

// Outbound event types (gateway → client).
const (
	EvtConnected            MessageType = "connected"
	EvtSubscribed           MessageType = "subscribed"
	EvtUnsubscribed         MessageType = "unsubscribed"
	EvtLocationUpdate       MessageType = "location_update"
	EvtLocationAcknowledged MessageType = "location_acknowledged"
	EvtStatusAcknowledged   MessageType = "status_acknowledged"
	EvtDriverStatusChange   MessageType = "driver_status_change"
	EvtDeliveryStatusChange MessageType = "delivery_status_change"
	EvtDriverAssigned       MessageType = "driver_assigned"
	EvtError                MessageType = "error"
	EvtPong                 MessageType = "pong"
)

// ClientMessage is the flat JSON envelope for every inbound protocol
// message. Which fields are required depends on Type; Validate enforces the
// per-type shape at the protocol boundary.
type ClientMessage struct {
	Type MessageType `json:"type"`

	// Token carries the credential on a connect message.
	Token string `json:"token,omitempty"`

	// DeliveryID scopes subscribe_delivery, unsubscribe_delivery and
	// location_update messages.
	DeliveryID string `json:"deliveryId,omitempty"`

	// Coordinates is required on location_update, optional on driver_status.
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	Speed   *float64 `json:"speed,omitempty"`
	Heading *float64 `json:"heading,omitempty"`

	// Status is the requested presence state on a driver_status message.
	Status string `json:"status,omitempty"`

	// Timestamp is accepted from clients for wire compatibility but ignored:
	// the server assigns its own authoritative timestamp at ingest.
	Timestamp string `json:"timestamp,omitempty"`
}

// Sentinel validation errors returned by [ClientMessage.Validate].
var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMissingDeliveryID  = errors.New("deliveryId is required")
	ErrMissingCoordinates = errors.New("coordinates are required")
	ErrInvalidStatus      = errors.New("invalid driver status")
)

// Validate checks that the message carries every field its type requires and
// that carried values are well-formed. Messages failing validation are
// rejected at the protocol boundary with a single error event and cause no
// state mutation.
func (m ClientMessage) Validate() error {
	switch m.Type {
	case MsgSubscribeDelivery, MsgUnsubscribeDelivery:
		if m.DeliveryID == "" {
			return ErrMissingDeliveryID
		}
	case MsgLocationUpdate:
		if m.DeliveryID == "" {
			return ErrMissingDeliveryID
		}
		if m.Coordinates == nil {
			return ErrMissingCoordinates
		}
		if err := m.Coordinates.Validate(); err != nil {
			return err
		}
	case MsgDriverStatus:
		if _, err := ParseDriverStatus(m.Status); err != nil {
			return ErrInvalidStatus
		}
		if m.Coordinates != nil {
			if err := m.Coordinates.Validate(); err != nil {
				return err
			}
		}
	case MsgConnect, MsgPing:
		// no required fields beyond the type
	default:
		return ErrUnknownMessageType
	}

	return nil
}

// EventData is the nested payload of broadcast notification events
// (driver_status_change, delivery_status_change, driver_assigned).
type EventData struct {
	Status      string       `json:"status,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Action      string       `json:"action,omitempty"`
}

// ServerEvent is the flat JSON envelope for every outbound event. Empty
// fields are omitted so each event type serializes to exactly the shape the
// protocol defines.
type ServerEvent struct {
	Type MessageType `json:"type"`

	Message    string `json:"message,omitempty"`
	UserID     string `json:"userId,omitempty"`
	DeliveryID string `json:"deliveryId,omitempty"`
	DriverID   string `json:"driverId,omitempty"`

	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Speed       *float64     `json:"speed,omitempty"`
	Heading     *float64     `json:"heading,omitempty"`

	Status string     `json:"status,omitempty"`
	Data   *EventData `json:"data,omitempty"`

	// Timestamp is the server time the event was built.
	Timestamp time.Time `json:"timestamp"`

	// ServerTime is the unix-millisecond server clock, set on pong events so
	// clients can estimate skew without parsing RFC 3339.
	ServerTime int64 `json:"serverTime,omitempty"`
}

// NewConnectedEvent acknowledges a successful handshake.
func NewConnectedEvent(subjectID string, now time.Time) ServerEvent {
	return ServerEvent{
		Type:      EvtConnected,
		Message:   "connection established",
		UserID:    subjectID,
		Timestamp: now,
	}
}

// NewSubscribedEvent acknowledges a subscribe_delivery message.
func NewSubscribedEvent(deliveryID string, now time.Time) ServerEvent {
	return ServerEvent{
		Type:       EvtSubscribed,
		DeliveryID: deliveryID,
		Message:    "subscribed to delivery updates",
		Timestamp:  now,
	}
}

// NewUnsubscribedEvent acknowledges an unsubscribe_delivery message.
func NewUnsubscribedEvent(deliveryID string, now time.Time) ServerEvent {
	return ServerEvent{
		Type:       EvtUnsubscribed,
		DeliveryID: deliveryID,
		Message:    "unsubscribed from delivery updates",
		Timestamp:  now,
	}
}

// NewLocationUpdateEvent carries a position record to delivery observers.
func NewLocationUpdateEvent(record PositionRecord) ServerEvent {
	return ServerEvent{
		Type:        EvtLocationUpdate,
		DeliveryID:  record.DeliveryID,
		DriverID:    record.DriverID,
		Coordinates: &record.Coordinates,
		Speed:       record.Speed,
		Heading:     record.Heading,
		Timestamp:   record.ServerTimestamp,
	}
}

// NewLocationAcknowledgedEvent confirms receipt and broadcast of a
// location_update to its sender.
func NewLocationAcknowledgedEvent(deliveryID string, now time.Time) ServerEvent {
	return ServerEvent{
		Type:       EvtLocationAcknowledged,
		DeliveryID: deliveryID,
		Timestamp:  now,
	}
}

// NewStatusAcknowledgedEvent confirms a driver_status message to its sender.
func NewStatusAcknowledgedEvent(status DriverStatus, now time.Time) ServerEvent {
	return ServerEvent{
		Type:      EvtStatusAcknowledged,
		Status:    string(status),
		Timestamp: now,
	}
}

// NewDriverStatusChangeEvent announces a driver presence transition.
// Broadcast to all connections.
func NewDriverStatusChangeEvent(driverID string, status DriverStatus, coords *Coordinates, now time.Time) ServerEvent {
	return ServerEvent{
		Type:     EvtDriverStatusChange,
		DriverID: driverID,
		Data: &EventData{
			Status:      string(status),
			Coordinates: coords,
		},
		Timestamp: now,
	}
}

// NewDeliveryStatusChangeEvent announces a delivery status transition.
// Broadcast to the delivery's subscribers only.
func NewDeliveryStatusChangeEvent(deliveryID, status, driverID string, now time.Time) ServerEvent {
	return ServerEvent{
		Type:       EvtDeliveryStatusChange,
		DeliveryID: deliveryID,
		DriverID:   driverID,
		Data:       &EventData{Status: status},
		Timestamp:  now,
	}
}

// NewDriverAssignedEvent announces a driver assignment to a delivery's
// subscribers.
func NewDriverAssignedEvent(deliveryID, driverID string, now time.Time) ServerEvent {
	return ServerEvent{
		Type:       EvtDriverAssigned,
		DeliveryID: deliveryID,
		DriverID:   driverID,
		Data:       &EventData{Action: "assigned"},
		Timestamp:  now,
	}
}

// NewErrorEvent reports a connection-local failure to the sender.
func NewErrorEvent(message string, now time.Time) ServerEvent {
	return ServerEvent{
		Type:      EvtError,
		Message:   message,
		Timestamp: now,
	}
}

// NewPongEvent answers a protocol-level ping.
func NewPongEvent(now time.Time) ServerEvent {
	return ServerEvent{
		Type:       EvtPong,
		Timestamp:  now,
		ServerTime: now.UnixMilli(),
	}
}
