// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

var (
	// ErrEmptyAuthorizationHeader indicates a request to the operational API
	// without an "Authorization" header.
	ErrEmptyAuthorizationHeader = errors.New("empty authorization header")

	// ErrHandshakeExpectedConnect indicates that the first frame on a fresh
	// WebSocket was not a connect message.
	ErrHandshakeExpectedConnect = errors.New("handshake: first message must be connect")
)
