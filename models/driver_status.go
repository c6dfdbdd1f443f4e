package models

import "fmt"

// DriverStatus is a driver's presence state as observed by the gateway.
//
// The state machine is:
//
//	offline → online → {online, busy} → offline
//
// Transitions are driven only by explicit driver_status messages and by
// disconnect, which forces offline. There is no timeout-based expiry.
type DriverStatus string

const (
	DriverOffline DriverStatus = "offline"
	DriverOnline  DriverStatus = "online"
	DriverBusy    DriverStatus = "busy"
)

// ParseDriverStatus validates a raw status string from a driver_status
// message. The set is closed; anything else is a protocol violation.
func ParseDriverStatus(s string) (DriverStatus, error) {
	switch DriverStatus(s) {
	case DriverOffline, DriverOnline, DriverBusy:
		return DriverStatus(s), nil
	default:
		return "", fmt.Errorf("unknown driver status %q", s)
	}
}

// CanTransition reports whether a driver currently in status from may move
// to status to. Busy is only reachable from online; every state may return
// to offline.
func (from DriverStatus) CanTransition(to DriverStatus) bool {
	switch to {
	case DriverOffline:
		return true
	case DriverOnline:
		return from == DriverOffline || from == DriverBusy || from == DriverOnline
	case DriverBusy:
		return from == DriverOnline || from == DriverBusy
	default:
		return false
	}
}
