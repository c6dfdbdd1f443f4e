// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MKhiriev/go-track-gateway/internal/gateway"
	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/utils"
	"github.com/MKhiriev/go-track-gateway/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// handshakeTimeout bounds how long an upgraded socket may wait before
// presenting its connect message.
const handshakeTimeout = 10 * time.Second

// connectHandler upgrades the request to a WebSocket and manages the
// connection's lifecycle: handshake authentication, registration, the read
// loop, and the disconnect cascade on exit.
//
// Authentication is terminal-on-failure and silent: a socket that fails the
// handshake is closed without any outbound event, so unauthenticated
// sessions stay invisible to the rest of the system.
func (h *Handler) connectHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing connection")
		}
	}()

	identity, err := h.handshake(r, conn)
	if err != nil {
		log.Debug().Err(err).Msg("handshake rejected, closing connection")
		return
	}

	client := h.gateway.Register(identity)
	defer h.gateway.Unregister(client.ID)

	connLogger := log.GetChildLogger()
	connLogger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("connection", client.ID).Str("subject", identity.SubjectID)
	})
	connLogger.Info().Msg("websocket session established")

	// The write pump owns all writes to the socket; it exits when the
	// client's event channel is closed by the disconnect cascade.
	writeDone := make(chan struct{})
	go h.writePump(conn, client, connLogger, writeDone)

	h.readLoop(r, conn, client)

	// Unregister (via defer) closes the event channel, which stops the pump.
	<-writeDone
}

// handshake resolves and verifies the connection credential.
//
// The first frame must be a connect message. The credential is taken from
// the first populated location in priority order: the connect payload's
// token field, the Authorization header (bearer scheme), the "token" query
// parameter.
func (h *Handler) handshake(r *http.Request, conn *websocket.Conn) (models.Identity, error) {
	if err := conn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return models.Identity{}, err
	}

	_, frame, err := conn.ReadMessage()
	if err != nil {
		return models.Identity{}, err
	}

	var msg models.ClientMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return models.Identity{}, err
	}
	if msg.Type != models.MsgConnect {
		return models.Identity{}, ErrHandshakeExpectedConnect
	}

	token := msg.Token
	if token == "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			token, _ = utils.ParseBearerToken(authHeader)
		}
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	identity, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		return models.Identity{}, err
	}

	// handshake done; from here on the read deadline is managed by the
	// keepalive in readLoop
	return identity, nil
}

// readLoop processes inbound frames in arrival order until the peer
// disconnects or errors. Pong frames (answering the pump's pings) extend the
// read deadline.
func (h *Handler) readLoop(r *http.Request, conn *websocket.Conn, client *gateway.Client) {
	readDeadline := 2 * h.pingPeriod
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		h.gateway.HandleRaw(r.Context(), client, frame)
	}
}

// writePump serializes outbound events onto the socket and keeps the
// connection alive with transport-level pings. It is the only goroutine
// writing to the socket.
func (h *Handler) writePump(conn *websocket.Conn, client *gateway.Client, log *logger.Logger, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.Events():
			if !ok {
				// disconnect cascade finished; say goodbye cleanly
				_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Debug().Err(err).Msg("write failed, dropping connection")
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
