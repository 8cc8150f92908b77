// Package migrate converts the single-file storage.json of earlier
// versions into a vault directory.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/textutil"
	"github.com/starford/anota/internal/vault"
)

// Storage is the legacy storage.json document.
type Storage struct {
	Notes   []Note   `json:"notes"`
	Folders []Folder `json:"folders"`
}

// Note is a note as stored in storage.json.
type Note struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	FolderID         string   `json:"folderId"`
	PreviousFolderID string   `json:"previousFolderId"`
	CreatedAt        string   `json:"createdAt"`
	ModifiedAt       string   `json:"modifiedAt"`
	Tags             []string `json:"tags"`
}

// Folder is a folder as stored in storage.json.
type Folder struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	System bool   `json:"system"`
}

// Report summarizes a migration.
type Report struct {
	Folders []string
	Notes   int
	// Skipped maps a note or folder id to the reason it was not migrated.
	Skipped map[string]string
}

// Decode reads a storage.json document.
func Decode(r io.Reader) (*Storage, error) {
	var s Storage
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("migrate: decode storage: %w", err)
	}
	return &s, nil
}

// File migrates the storage.json at path into store.
func File(path string, store *vault.Store, logger *slog.Logger) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("migrate: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return Report{}, err
	}
	return Run(s, store, logger)
}

// Run writes every folder and note of s into store. Existing folders are
// reused; notes whose folder cannot be created land in all.
func Run(s *Storage, store *vault.Store, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rep := Report{Skipped: map[string]string{}}

	if err := store.EnsureLayout(); err != nil {
		return rep, err
	}

	folders := map[string]bool{}
	ensureFolder := func(id string) bool {
		if models.IsSystemFolder(id) || folders[id] {
			return true
		}
		if _, ok := rep.Skipped[id]; ok {
			return false
		}
		if _, err := store.CreateFolder(id); err != nil && !errors.Is(err, fs.ErrExist) {
			rep.Skipped[id] = err.Error()
			logger.Warn("migrate: folder skipped", slog.String("folder", id), slog.String("error", err.Error()))
			return false
		}
		folders[id] = true
		rep.Folders = append(rep.Folders, id)
		return true
	}

	for _, f := range s.Folders {
		if !f.System {
			ensureFolder(f.ID)
		}
	}

	for _, ln := range s.Notes {
		if strings.TrimSpace(ln.ID) == "" {
			rep.Skipped["(no id)"] = "note without id"
			continue
		}
		n := convert(ln)
		if !ensureFolder(n.FolderID) {
			n.FolderID = models.FolderAll
		}
		if err := store.SaveNote(n); err != nil {
			rep.Skipped[ln.ID] = err.Error()
			logger.Warn("migrate: note skipped", slog.String("id", ln.ID), slog.String("error", err.Error()))
			continue
		}
		rep.Notes++
		logger.Debug("migrate: note written", slog.String("id", n.ID), slog.String("path", vault.NotePath(n.FolderID, n.ID)))
	}
	return rep, nil
}

func convert(ln Note) models.Note {
	n := models.Note{
		ID:               ln.ID,
		Title:            ln.Title,
		Content:          ln.Content,
		FolderID:         ln.FolderID,
		PreviousFolderID: ln.PreviousFolderID,
		CreatedAt:        parseTime(ln.CreatedAt),
		ModifiedAt:       parseTime(ln.ModifiedAt),
		Tags:             ln.Tags,
	}
	if n.FolderID == "" {
		n.FolderID = models.FolderAll
	}
	if !n.InTrash() {
		n.PreviousFolderID = ""
	}
	if strings.TrimSpace(n.Title) == "" {
		n.Title = textutil.DefaultTitle
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.ModifiedAt.IsZero() {
		n.ModifiedAt = n.CreatedAt
	}
	return n
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
