// Package models defines the domain types for anota.
package models

import (
	"strings"
	"time"
)

// System folder ids and reserved directory names.
const (
	FolderAll   = "all"
	FolderTrash = "trash"
	AssetsDir   = "assets"

	DefaultFolderColor = "#EBB800"
)

// Note is a markdown file in the vault together with its front matter.
type Note struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	FolderID         string    `json:"folderId"`
	PreviousFolderID string    `json:"previousFolderId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	ModifiedAt       time.Time `json:"modifiedAt"`
	Tags             []string  `json:"tags"`
}

// InTrash reports whether the note is soft-deleted.
func (n *Note) InTrash() bool { return n.FolderID == FolderTrash }

// HasTag reports whether the note carries tag (case-insensitive).
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Folder is a collection of notes. Non-system folders map 1:1 to a
// directory under the vault root.
type Folder struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	System bool   `json:"system"`
	Color  string `json:"color"`
}

// SystemFolders returns the two virtual folders every vault has.
func SystemFolders() []Folder {
	return []Folder{
		{ID: FolderAll, Name: "All Notes", System: true, Color: DefaultFolderColor},
		{ID: FolderTrash, Name: "Recently Deleted", System: true, Color: DefaultFolderColor},
	}
}

// IsSystemFolder reports whether id names one of the virtual folders.
func IsSystemFolder(id string) bool {
	return id == FolderAll || id == FolderTrash
}

// Vault is the loaded content of a vault root.
type Vault struct {
	Root    string   `json:"root"`
	Folders []Folder `json:"folders"`
	Notes   []Note   `json:"notes"`
}

// Asset is an uploaded file stored under assets/.
type Asset struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}
