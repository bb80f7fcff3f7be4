package routes

import (
	"github.com/AnshRaj112/reflect-backend/internal/handlers"
	"github.com/AnshRaj112/reflect-backend/internal/metrics"
	"github.com/AnshRaj112/reflect-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Journal  *handlers.JournalHandler
	Users    *handlers.UserHandler
	Realtime *handlers.RealtimeHandler // nil disables /ws/entries
	Verifier middleware.TokenVerifier
}

func SetupRoutes(r chi.Router, h Handlers) {
	r.Get("/health", handlers.Health)
	r.Handle("/metrics", metrics.Handler())

	requireIdentity := middleware.RequireIdentity(h.Verifier)

	r.Route("/api", func(r chi.Router) {
		// Catalog is public
		r.Get("/moods", handlers.ListMoods)

		r.Group(func(r chi.Router) {
			r.Use(requireIdentity)

			r.Get("/me", h.Users.Me)

			r.Get("/entries", h.Journal.ListEntries)
			r.Post("/entries", h.Journal.CreateEntry)
			r.Get("/entries/{id}", h.Journal.GetEntry)
			r.Put("/entries/{id}", h.Journal.UpdateEntry)
			r.Delete("/entries/{id}", h.Journal.DeleteEntry)

			r.Get("/drafts", h.Journal.GetDraft)
			r.Put("/drafts", h.Journal.SaveDraft)

			r.Get("/collections", h.Journal.ListCollections)
			r.Post("/collections", h.Journal.CreateCollection)
			r.Delete("/collections/{id}", h.Journal.DeleteCollection)

			r.Get("/activity", h.Journal.ListActivity)
		})
	})

	if h.Realtime != nil {
		r.With(requireIdentity).Get("/ws/entries", h.Realtime.Invalidations)
	}
}
