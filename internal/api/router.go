package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/anota/internal/noteservice"
)

// LinkOpener opens external links outside the app.
type LinkOpener interface {
	Open(url string) error
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// links may be nil, in which case POST /links/open is not mounted.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler, links LinkOpener) chi.Router {
	h := NewHandler(svc, links)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/vault", h.GetVault)
	r.Post("/vault/reload", h.ReloadVault)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Delete("/", h.DeleteNote)
		r.Get("/document", h.GetDocument)
		r.Put("/document", h.UpdateDocument)
		r.Put("/content", h.UpdateContent)
		r.Post("/flush", h.FlushNote)
		r.Post("/recover", h.RecoverNote)
		r.Post("/move", h.MoveNote)
		r.Get("/export", h.ExportNote)
	})

	// Folders.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)
	r.Put("/folders/{id}", h.RenameFolder)
	r.Delete("/folders/{id}", h.DeleteFolder)

	// Assets.
	r.Post("/assets", h.UploadAsset)
	r.Get("/assets/*", h.ServeAsset)

	r.Get("/search", h.Search)
	r.Put("/selection", h.UpdateSelection)

	if links != nil {
		r.Post("/links/open", h.OpenLink)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
