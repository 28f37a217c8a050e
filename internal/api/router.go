package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/humkit/internal/midiexport"
	"github.com/starford/humkit/internal/scoreservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// midi holds the defaults for MIDI downloads.
func NewRouter(svc *scoreservice.Service, authEnabled bool, token string, sseHandler http.Handler, midi midiexport.Options) chi.Router {
	h := NewHandler(svc, midi)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Scores CRUD.
	r.Get("/scores", h.ListScores)
	r.Post("/scores", h.CreateScore)
	r.Post("/scores/move", h.MoveScore)
	r.Get("/scores/*", h.GetScore)
	r.Put("/scores/*", h.UpdateScore)
	r.Delete("/scores/*", h.DeleteScore)

	// Views of a single score.
	r.Get("/info/*", h.Info)
	r.Get("/spines/*", h.Spines)
	r.Get("/timeline/*", h.Timeline)
	r.Get("/analysis/*", h.Analysis)
	r.Get("/midi/*", h.MIDI)

	// Library queries.
	r.Get("/search", h.Search)
	r.Get("/references", h.References)

	// Multipart import, including segmented multi-score files.
	r.Post("/uploads", h.Upload)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
