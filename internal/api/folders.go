package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetVault handles GET /api/vault.
//
//	@Summary		Describe the open vault
//	@Tags			vault
//	@Produce		json
//	@Success		200	{object}	VaultResponse
//	@Security		BearerAuth
//	@Router			/vault [get]
func (h *Handler) GetVault(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, VaultResponse{
		Root:      h.svc.Root(),
		Folders:   h.svc.Folders(),
		Tags:      h.svc.Tags(),
		Selection: h.svc.Selection(),
	})
}

// ReloadVault handles POST /api/vault/reload.
//
//	@Summary		Re-read the vault from disk after external edits
//	@Tags			vault
//	@Produce		json
//	@Success		200	{object}	VaultResponse
//	@Security		BearerAuth
//	@Router			/vault/reload [post]
func (h *Handler) ReloadVault(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reload(); err != nil {
		writeError(w, "reload vault", err)
		return
	}
	h.GetVault(w, r)
}

// ListFolders handles GET /api/folders.
//
//	@Summary		List folders, system folders first
//	@Tags			folders
//	@Produce		json
//	@Success		200	{array}	models.Folder
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Folders())
}

// CreateFolder handles POST /api/folders.
//
//	@Summary		Create a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FolderRequest	true	"Folder name"
//	@Success		201		{object}	models.Folder
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.svc.CreateFolder(req.Name)
	if err != nil {
		writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// RenameFolder handles PUT /api/folders/{id}.
//
//	@Summary		Rename a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Folder id"
//	@Param			body	body		FolderRequest	true	"New name"
//	@Success		200		{object}	models.Folder
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id} [put]
func (h *Handler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.svc.RenameFolder(chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, "rename folder", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeleteFolder handles DELETE /api/folders/{id}.
//
//	@Summary		Delete a folder, moving its notes to trash
//	@Tags			folders
//	@Produce		json
//	@Param			id	path		string	true	"Folder id"
//	@Success		200	{object}	DeleteFolderResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	moved, err := h.svc.DeleteFolder(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete folder", err)
		return
	}
	if moved == nil {
		moved = []string{}
	}
	writeJSON(w, http.StatusOK, DeleteFolderResponse{Moved: moved})
}

// UpdateSelection handles PUT /api/selection.
//
//	@Summary		Change the selected folder, note, tag or search
//	@Tags			vault
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectionRequest	true	"Fields to change"
//	@Success		200		{object}	noteservice.Selection
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [put]
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FolderID != nil {
		if _, err := h.svc.SelectFolder(*req.FolderID); err != nil {
			writeError(w, "select folder", err)
			return
		}
	}
	if req.Tag != nil {
		h.svc.SelectTag(*req.Tag)
	}
	if req.Search != nil {
		h.svc.SetSearch(*req.Search)
	}
	if req.NoteID != nil {
		if _, err := h.svc.SelectNote(*req.NoteID); err != nil {
			writeError(w, "select note", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.svc.Selection())
}

// OpenLink handles POST /api/links/open.
//
//	@Summary		Open an external link in the system browser
//	@Tags			links
//	@Accept			json
//	@Param			body	body	OpenLinkRequest	true	"Link"
//	@Success		202
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/open [post]
func (h *Handler) OpenLink(w http.ResponseWriter, r *http.Request) {
	var req OpenLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.links.Open(req.URL); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
