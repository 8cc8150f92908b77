package api

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/vault"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadAsset handles POST /api/assets (multipart/form-data, field "file").
//
//	@Summary		Store an image under assets/
//	@Tags			assets
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	AssetUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets [post]
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	if err := vault.CheckImage(data, header.Filename); err != nil {
		writeError(w, "save asset", err)
		return
	}

	rel, err := h.svc.Store().SaveAsset(data, header.Filename)
	if err != nil {
		writeError(w, "save asset", err)
		return
	}

	writeJSON(w, http.StatusCreated, AssetUploadResponse{
		Path: rel,
		Size: int64(len(data)),
		URL:  AssetURL(rel),
	})
}

// ServeAsset handles GET /api/assets/*.
func (h *Handler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	rel := path.Join(models.AssetsDir, name)
	if name == "" || !strings.HasPrefix(rel, models.AssetsDir+"/") {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid asset path"))
		return
	}
	abs, err := h.svc.Store().AssetFile(rel)
	if err != nil {
		writeError(w, "serve asset", err)
		return
	}
	http.ServeFile(w, r, abs)
}
