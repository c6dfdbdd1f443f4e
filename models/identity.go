// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package models defines the domain types shared by every layer of the
// tracking gateway: identities and roles, position records, driver presence
// states, and the inbound/outbound wire messages of the WebSocket protocol.
package models

import "fmt"

// Role is the closed set of principal roles known to the gateway.
// Every authenticated connection carries exactly one role for its lifetime.
type Role string

const (
	// RoleCustomer may subscribe to deliveries and observe position updates.
	RoleCustomer Role = "customer"

	// RoleDriver may additionally report positions and presence changes.
	RoleDriver Role = "driver"

	// RoleAdmin has the same gateway privileges as a customer; elevated
	// capabilities live in the CRUD services outside the gateway.
	RoleAdmin Role = "admin"
)

// ParseRole converts a raw role string (e.g. a JWT claim value) into a Role.
//
// The role set is closed: anything outside customer/driver/admin is rejected
// so that authorization checkpoints can match exhaustively.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleDriver, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Identity is the authenticated principal bound to a connection.
// It is assigned once at handshake time and never mutated afterwards.
type Identity struct {
	// SubjectID is the principal's unique identifier (the JWT "sub" claim).
	SubjectID string

	// Role determines which protocol messages the connection may send.
	Role Role
}

// IsDriver reports whether the identity is authorized to emit position
// reports and presence changes.
func (i Identity) IsDriver() bool {
	return i.Role == RoleDriver
}
