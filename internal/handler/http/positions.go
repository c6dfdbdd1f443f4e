package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/utils"
	"github.com/MKhiriev/go-track-gateway/models"
	"github.com/go-chi/chi/v5"
)

// listDeliveryPositions serves the position history for a delivery from the
// durable store, newest first.
//
// Query parameters:
//
//	driverId — restrict to one driver's reports
//	since    — RFC 3339 lower bound on the server timestamp
//	limit    — page size (capped by the repository)
func (h *Handler) listDeliveryPositions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	filter := models.PositionFilter{
		DeliveryID: chi.URLParam(r, "deliveryID"),
		DriverID:   r.URL.Query().Get("driverId"),
	}

	if since := r.URL.Query().Get("since"); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			http.Error(w, "since must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		filter.Since = parsed
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		parsed, err := strconv.ParseUint(limit, 10, 64)
		if err != nil {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = parsed
	}

	records, err := h.positions.ListPositions(r.Context(), filter)
	if err != nil {
		log.Err(err).Str("delivery", filter.DeliveryID).Msg("error listing positions")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if _, err := utils.WriteJSON(w, records, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing positions response")
	}
}
