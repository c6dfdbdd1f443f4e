// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import "errors"

var (
	// ErrMissingCredential indicates that no credential token was presented
	// in any of the accepted locations.
	ErrMissingCredential = errors.New("missing credential token")

	// ErrInvalidCredential indicates that a presented credential failed
	// verification (malformed, expired, wrong issuer, bad signature, or an
	// unknown role claim). The cause is deliberately not exposed to clients.
	ErrInvalidCredential = errors.New("invalid credential token")
)
