// Package http implements the HTTP transport layer of the gateway.
// It provides the WebSocket upgrade endpoint, the operational API consumed
// by the rest of the system (stats, delivery announcements, position
// history), and the middleware handling tracing, logging, and admin
// authentication before requests reach the realtime core.
package http

import (
	"time"

	"github.com/MKhiriev/go-track-gateway/internal/config"
	"github.com/MKhiriev/go-track-gateway/internal/gateway"
	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/service"
	"github.com/MKhiriev/go-track-gateway/internal/store"
	"github.com/gorilla/websocket"
)

// Handler is the root HTTP transport handler. It holds the collaborators
// every route needs: the token verifier for authentication, the gateway for
// realtime operations, and the position repository for the history read
// side.
type Handler struct {
	verifier  service.TokenVerifier
	gateway   *gateway.Gateway
	positions store.PositionRepository

	upgrader       websocket.Upgrader
	pingPeriod     time.Duration
	writeTimeout   time.Duration
	requestTimeout time.Duration

	logger *logger.Logger
}

// NewHandler constructs the transport handler.
func NewHandler(
	verifier service.TokenVerifier,
	gw *gateway.Gateway,
	positions store.PositionRepository,
	cfg config.Gateway,
	srvCfg config.Server,
	logger *logger.Logger,
) *Handler {
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	logger.Info().Msg("http handler created")
	return &Handler{
		verifier:  verifier,
		gateway:   gw,
		positions: positions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingPeriod:     pingPeriod,
		writeTimeout:   writeTimeout,
		requestTimeout: srvCfg.RequestTimeout,
		logger:         logger,
	}
}
