package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/account"
	"github.com/starford/scribe/internal/noteservice"
	"github.com/starford/scribe/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// events, if non-nil, serves GET /events inside the authenticated group.
func NewRouter(accounts *account.Service, notes *noteservice.Service, verifier TokenVerifier, events *sse.Broker) chi.Router {
	h := NewHandler(accounts, notes, events)

	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/signin", h.SignIn)
		r.Post("/verify", h.Verify)
		r.With(RequireAuth(verifier)).Get("/profile", h.Profile)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(verifier))

		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Get("/notes/{id}", h.GetNote)
		r.Put("/notes/{id}", h.UpdateNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Get("/notes/{id}/export", h.ExportNote)

		if events != nil {
			r.Get("/events", h.Events)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, failure("Not found"))
	})

	return r
}
