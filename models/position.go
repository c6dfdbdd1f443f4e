package models

import (
	"errors"
	"time"
)

// Coordinates is a geographic point reported by a driver's device.
type Coordinates struct {
	// Latitude in decimal degrees, range [-90, 90].
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees, range [-180, 180].
	Longitude float64 `json:"longitude"`

	// Accuracy is the device-reported horizontal accuracy in meters.
	// Optional; nil when the device did not report one.
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// Validate checks the coordinate ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return errors.New("latitude out of range [-90, 90]")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return errors.New("longitude out of range [-180, 180]")
	}
	if c.Accuracy != nil && *c.Accuracy < 0 {
		return errors.New("accuracy must be non-negative")
	}
	return nil
}

// PositionRecord is a single timestamped location report for a driver on a
// delivery. It is the unit of persistence, caching, and fan-out.
//
// ServerTimestamp is authoritative: it is assigned by the ingest pipeline at
// the moment the report is accepted and any client-supplied timestamp is
// discarded. Because ingest is the sole writer, timestamps are monotonic per
// driver as observed by the server.
type PositionRecord struct {
	// ID is the server-assigned row identifier, populated on persistence.
	ID int64 `json:"-"`

	// DeliveryID identifies the delivery this report belongs to.
	DeliveryID string `json:"deliveryId"`

	// DriverID is the reporting driver's subject id.
	DriverID string `json:"driverId"`

	// Coordinates is the reported geographic point.
	Coordinates Coordinates `json:"coordinates"`

	// Speed in meters per second. Optional.
	Speed *float64 `json:"speed,omitempty"`

	// Heading in degrees clockwise from true north, range [0, 360). Optional.
	Heading *float64 `json:"heading,omitempty"`

	// ServerTimestamp is the ingest-assigned receipt time.
	ServerTimestamp time.Time `json:"timestamp"`
}

// PositionFilter narrows a position history query. Zero values mean
// "no constraint"; Limit is capped by the repository.
type PositionFilter struct {
	DeliveryID string
	DriverID   string
	Since      time.Time
	Limit      uint64
}
