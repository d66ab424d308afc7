package routes

import (
	"github.com/go-chi/chi/v5"

	"infinite-experiment/dispatchboard/internal/api"
	"infinite-experiment/dispatchboard/internal/auth"
	"infinite-experiment/dispatchboard/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers. Reads are
// open; every write needs a dispatcher token.
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers, signer *auth.TokenSigner, limiter *middleware.RateLimiter) {

	r.Route("/api/v1", func(v1 chi.Router) {
		// Board reads
		v1.Get("/flights", handlers.GetFlights())
		v1.Get("/flights/{record_id}/checkins/default", handlers.DefaultCheckins())
		v1.Get("/flights/{record_id}/checkins/overlap", handlers.CheckinOverlap())
		v1.Get("/conflicts", handlers.Conflicts())
		v1.Get("/queue", handlers.Queue())
		v1.Get("/pool", handlers.GetPool())
		v1.Get("/buffer", handlers.GetBuffer())

		// Analysis
		v1.Get("/occupancy", handlers.Occupancy())
		v1.Get("/capacity", handlers.Capacity())
		v1.Get("/peak", handlers.Peak())
		v1.Get("/density", handlers.Density())

		// Mutations
		v1.Group(func(w chi.Router) {
			w.Use(limiter.Middleware)
			w.Use(middleware.AuthMiddleware(signer))
			w.Use(middleware.IsDispatcherMiddleware())

			w.Put("/window", handlers.SetWindow())
			w.Post("/flights", handlers.ImportFlights())
			w.Delete("/flights/{record_id}", handlers.DeleteFlight())
			w.Put("/flights/{record_id}/gate", handlers.AssignGate())
			w.Delete("/flights/{record_id}/gate", handlers.UnassignGate())
			w.Put("/flights/{record_id}/checkins", handlers.SetCheckins())
			w.Put("/flights/{record_id}/checkins/{index}", handlers.MoveCheckin())
			w.Delete("/flights/{record_id}/checkins/{index}", handlers.RemoveCheckin())
			w.Put("/pool/gates/{gate_id}", handlers.AddGate())
			w.Delete("/pool/gates/{gate_id}", handlers.RemoveGate())
			w.Put("/buffer", handlers.SetBuffer())
		})
	})
}
