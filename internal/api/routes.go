package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/openairwaves/onair-go/internal/ws"
)

// Routes builds the console's route tree. Middleware and CORS are the
// server's concern and are attached by the caller.
func (h *Handler) Routes(hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.health)
	r.Get("/ws", hub.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Route("/broadcast", func(r chi.Router) {
			r.Post("/start", h.startBroadcast)
			r.Post("/end", h.endBroadcast)
			r.Post("/microphone", h.toggleMicrophone)
			r.Post("/mode", h.switchMode)
			r.Post("/emergency", h.triggerEmergency)
			r.Get("/state", h.broadcastState)
		})

		r.Route("/hardware", func(r chi.Router) {
			r.Get("/devices", h.hardwareDevices)
			r.Post("/connect", h.hardwareConnect)
			r.Post("/disconnect", h.hardwareDisconnect)
			r.Get("/status", h.hardwareStatus)
			r.Post("/control", h.logControl)
		})

		r.Get("/schedule/current", h.currentSlot)
	})

	return r
}
