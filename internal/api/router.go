package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(h *Handler, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(CORSMiddleware)

	r.Get("/health", h.Health)

	// Content pipeline.
	r.Post("/classify-content", h.ClassifyContent)
	r.Post("/suggest-merge", h.SuggestMerge)
	r.Post("/organize-content", h.OrganizeContent)
	r.Post("/save-note", h.SaveNote)

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Delete("/notes/batch-delete", h.BatchDeleteNotes)
	r.Get("/notes/{id}", h.GetNote)
	r.Get("/notes/{id}/html", h.GetNoteHTML)
	r.Put("/notes/{id}/edit", h.EditNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Search.
	r.Get("/search", h.Search)

	// Clipboard capture history.
	r.Get("/captures", h.ListCaptures)
	r.Delete("/captures", h.ClearCaptures)

	// SSE endpoint.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
