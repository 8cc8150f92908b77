package api

import (
	"time"

	"github.com/starford/anota/internal/checksum"
	"github.com/starford/anota/internal/index"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/noteservice"
	"github.com/starford/anota/internal/textutil"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	FolderID string `json:"folderId" example:"work"`
	Content  string `json:"content,omitempty" example:"# Hello\nWorld"`
}

// UpdateContentRequest is the request body for replacing note content.
type UpdateContentRequest struct {
	Content string `json:"content" example:"# Updated\nContent"`
}

// MoveNoteRequest is the request body for moving a note.
type MoveNoteRequest struct {
	FolderID string `json:"folderId" example:"work" validate:"required"`
}

// FolderRequest is the request body for creating or renaming a folder.
type FolderRequest struct {
	Name string `json:"name" example:"Work" validate:"required"`
}

// SelectionRequest changes what is selected. Absent fields are left as
// they are.
type SelectionRequest struct {
	FolderID *string `json:"folderId,omitempty" example:"all"`
	NoteID   *string `json:"noteId,omitempty"`
	Search   *string `json:"search,omitempty"`
	Tag      *string `json:"tag,omitempty"`
}

// OpenLinkRequest is the request body for opening an external link.
type OpenLinkRequest struct {
	URL string `json:"url" example:"https://example.com" validate:"required"`
}

// NoteDetail is a full note with its content checksum.
type NoteDetail struct {
	models.Note
	Checksum string `json:"checksum" example:"abc123..." validate:"required"`
	Pending  bool   `json:"pending"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID         string    `json:"id" validate:"required"`
	Title      string    `json:"title" example:"Hello" validate:"required"`
	FolderID   string    `json:"folderId" example:"all" validate:"required"`
	Tags       []string  `json:"tags"`
	Preview    string    `json:"preview" example:"World"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// VaultResponse describes the open vault.
type VaultResponse struct {
	Root      string                `json:"root" validate:"required"`
	Folders   []models.Folder       `json:"folders" validate:"required"`
	Tags      []string              `json:"tags" validate:"required"`
	Selection noteservice.Selection `json:"selection"`
}

// DeleteNoteResponse reports the outcome of a delete.
type DeleteNoteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// DeleteFolderResponse lists the notes moved to trash.
type DeleteFolderResponse struct {
	Moved []string `json:"moved"`
}

// AssetUploadResponse is returned after a successful asset upload.
type AssetUploadResponse struct {
	Path string `json:"path" example:"assets/image_1700000000000.png" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
	URL  string `json:"url" example:"/api/assets/image_1700000000000.png" validate:"required"`
}

func noteDetail(n models.Note, pending bool) NoteDetail {
	return NoteDetail{Note: n, Checksum: checksum.Content(n.Content), Pending: pending}
}

func noteListItem(n models.Note, previewLen int) NoteListItem {
	return NoteListItem{
		ID:         n.ID,
		Title:      n.Title,
		FolderID:   n.FolderID,
		Tags:       n.Tags,
		Preview:    textutil.CreateNotePreview(n.Content, previewLen),
		ModifiedAt: n.ModifiedAt,
	}
}
