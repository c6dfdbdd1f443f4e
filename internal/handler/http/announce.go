package http

import (
	"encoding/json"
	"net/http"

	"github.com/MKhiriev/go-track-gateway/internal/logger"
	"github.com/MKhiriev/go-track-gateway/internal/utils"
	"github.com/go-chi/chi/v5"
)

// deliveryStatusRequest is the body of POST /api/deliveries/{id}/status.
type deliveryStatusRequest struct {
	Status   string `json:"status"`
	DriverID string `json:"driverId,omitempty"`
}

// driverAssignmentRequest is the body of POST /api/deliveries/{id}/assign.
type driverAssignmentRequest struct {
	DriverID string `json:"driverId"`
}

// announceDeliveryStatus lets an external command handler (the delivery CRUD
// service) notify a delivery's subscribers of a status change. The event is
// ephemeral; nothing is stored.
func (h *Handler) announceDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	deliveryID := chi.URLParam(r, "deliveryID")

	var req deliveryStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("error decoding delivery status request")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	h.gateway.AnnounceDeliveryStatusChange(deliveryID, req.Status, req.DriverID)

	if identity, ok := utils.GetIdentityFromContext(r.Context()); ok {
		log.Info().
			Str("subject", identity.SubjectID).
			Str("delivery", deliveryID).
			Str("deliveryStatus", req.Status).
			Msg("delivery status change requested")
	}

	if _, err := utils.WriteJSON(w, map[string]string{"result": "announced"}, http.StatusAccepted); err != nil {
		log.Err(err).Msg("error writing announce response")
	}
}

// announceDriverAssignment lets an external command handler notify a
// delivery's subscribers that a driver was assigned.
func (h *Handler) announceDriverAssignment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	deliveryID := chi.URLParam(r, "deliveryID")

	var req driverAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("error decoding driver assignment request")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.DriverID == "" {
		http.Error(w, "driverId is required", http.StatusBadRequest)
		return
	}

	h.gateway.AnnounceDriverAssignment(deliveryID, req.DriverID)

	if identity, ok := utils.GetIdentityFromContext(r.Context()); ok {
		log.Info().
			Str("subject", identity.SubjectID).
			Str("delivery", deliveryID).
			Str("driver", req.DriverID).
			Msg("driver assignment requested")
	}

	if _, err := utils.WriteJSON(w, map[string]string{"result": "announced"}, http.StatusAccepted); err != nil {
		log.Err(err).Msg("error writing announce response")
	}
}
