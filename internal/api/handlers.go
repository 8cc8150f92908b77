package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/anota/internal/checksum"
	"github.com/starford/anota/internal/document"
	"github.com/starford/anota/internal/export"
	"github.com/starford/anota/internal/index"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/noteservice"
)

const (
	previewLength = 120
	assetRoute    = "/api/assets/"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *noteservice.Service
	exporter *export.Exporter
	links    LinkOpener
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, links LinkOpener) *Handler {
	return &Handler{
		svc:      svc,
		exporter: export.New(AssetURL),
		links:    links,
	}
}

// AssetURL maps a vault-relative asset path to the URL it is served at.
func AssetURL(rel string) string {
	return assetRoute + strings.TrimPrefix(rel, models.AssetsDir+"/")
}

func noteID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func (h *Handler) writeNote(w http.ResponseWriter, status int, n models.Note) {
	d := noteDetail(n, h.svc.Pending(n.ID))
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, status, d)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes of a folder, tag or search
//	@Tags			notes
//	@Produce		json
//	@Param			folder	query		string	false	"Folder id (default all)"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			q		query		string	false	"Search term"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	f := noteservice.Filter{
		FolderID: q.Get("folder"),
		Tag:      q.Get("tag"),
		Search:   q.Get("q"),
	}
	if f.FolderID == "" {
		f.FolderID = models.FolderAll
	}
	notes := h.svc.Notes(f)
	total := len(notes)

	if offset > 0 {
		notes = notes[min(offset, len(notes)):]
	}
	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}

	items := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, noteListItem(n, previewLength))
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Note(noteID(r))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Description	An empty body creates an empty note in all.
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	false	"Folder and initial content"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.svc.ImportNote(req.FolderID, req.Content)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	h.writeNote(w, http.StatusCreated, n)
}

// UpdateContent handles PUT /api/notes/{id}/content.
//
//	@Summary		Replace note markdown with optimistic concurrency
//	@Description	The save is debounced; POST /notes/{id}/flush forces it.
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string					true	"Note id"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateContentRequest	true	"New content"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/content [put]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req UpdateContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ifMatch := checksum.FromIfMatch(r.Header.Get("If-Match"))

	n, err := h.svc.UpdateContentIf(noteID(r), req.Content, ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// GetDocument handles GET /api/notes/{id}/document.
//
//	@Summary		Get the block tree of a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	document.Document
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Document(noteID(r))
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocument handles PUT /api/notes/{id}/document.
//
//	@Summary		Replace a note from an edited block tree
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		document.Document	true	"Block tree"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/document [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var doc document.Document
	if !decodeJSON(w, r, &doc) {
		return
	}
	n, err := h.svc.UpdateDocument(noteID(r), &doc)
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// FlushNote handles POST /api/notes/{id}/flush.
//
//	@Summary		Write a pending edit now
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/flush [post]
func (h *Handler) FlushNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if err := h.svc.Flush(id); err != nil {
		writeError(w, "flush note", err)
		return
	}
	n, err := h.svc.Note(id)
	if err != nil {
		writeError(w, "flush note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Move a note to trash, or delete it from trash for good
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	DeleteNoteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteNote(noteID(r))
	if err != nil {
		writeError(w, "delete note", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteNoteResponse{Success: res.Success, Message: res.Message})
}

// RecoverNote handles POST /api/notes/{id}/recover.
//
//	@Summary		Restore a trashed note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/recover [post]
func (h *Handler) RecoverNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.RecoverNote(noteID(r))
	if err != nil {
		writeError(w, "recover note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// MoveNote handles POST /api/notes/{id}/move.
//
//	@Summary		Move a note to another folder
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note id"
//	@Param			body	body		MoveNoteRequest	true	"Target folder"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/move [post]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FolderID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folderId is required"))
		return
	}
	n, err := h.svc.MoveNote(noteID(r), req.FolderID)
	if err != nil {
		writeError(w, "move note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// ExportNote handles GET /api/notes/{id}/export.
//
//	@Summary		Download a note as markdown or HTML
//	@Tags			notes
//	@Produce		text/markdown,text/html
//	@Param			id		path	string	true	"Note id"
//	@Param			format	query	string	false	"Export format"	Enums(md, html)
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/export [get]
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != export.FormatMarkdown && format != export.FormatHTML {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be md or html"))
		return
	}
	id := noteID(r)
	if err := h.svc.Flush(id); err != nil {
		writeError(w, "export note", err)
		return
	}
	n, err := h.svc.Note(id)
	if err != nil {
		writeError(w, "export note", err)
		return
	}
	body, ctype, name, err := h.exporter.Export(n, format)
	if err != nil {
		writeError(w, "export note", err)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
