package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// realtime endpoint; authentication happens inside the handshake
	router.Get("/ws", h.connectHandler)

	router.Get("/healthz", h.healthz)

	// operational API for the rest of the system; websocket sessions stay
	// exempt from the request timeout, they live until disconnect
	router.Route("/api", func(r chi.Router) {
		if h.requestTimeout > 0 {
			r.Use(middleware.Timeout(h.requestTimeout))
		}
		r.Use(h.auth)

		r.Get("/stats/connections", h.statsConnections)
		r.Get("/stats/subscriptions", h.statsSubscriptions)

		r.Post("/deliveries/{deliveryID}/status", h.announceDeliveryStatus)
		r.Post("/deliveries/{deliveryID}/assign", h.announceDriverAssignment)
		r.Get("/deliveries/{deliveryID}/positions", h.listDeliveryPositions)
	})

	return router
}
