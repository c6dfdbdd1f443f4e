package http

import (
	"net/http"

	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/utils"
)

// statsConnections reports the number of live registered connections.
func (h *Handler) statsConnections(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	count := h.gateway.ConnectedClientCount()
	if _, err := utils.WriteJSON(w, map[string]int{"connections": count}, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing connections stats")
	}
}

// statsSubscriptions reports the current subscriber count per delivery.
func (h *Handler) statsSubscriptions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	subscriptions := h.gateway.ActiveSubscriptions()
	if _, err := utils.WriteJSON(w, subscriptions, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing subscription stats")
	}
}

// healthz is the liveness probe endpoint.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	_, _ = utils.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
