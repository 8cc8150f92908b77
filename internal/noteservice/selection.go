package noteservice

import (
	"fmt"
	"strings"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/models"
)

// Selection is what the user is looking at.
type Selection struct {
	FolderID string `json:"folderId"`
	NoteID   string `json:"noteId,omitempty"`
	Search   string `json:"search,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// Filter returns the list filter for the selection.
func (sel Selection) Filter() Filter {
	return Filter{FolderID: sel.FolderID, Search: sel.Search, Tag: sel.Tag}
}

// Selection returns the current selection.
func (s *Service) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Visible returns the notes listed for the current selection.
func (s *Service) Visible() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterNotes(s.notes, s.sel.Filter())
}

// SelectFolder switches folders. It clears the selected note, search and
// tag; entering trash selects its newest note.
func (s *Service) SelectFolder(id string) (Selection, error) {
	s.flushSelected()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.folderIndex(id) < 0 {
		return s.sel, fmt.Errorf("folder %q: %w", id, apperr.ErrNotFound)
	}
	s.sel = Selection{FolderID: id}
	if id == models.FolderTrash {
		if trashed := filterNotes(s.notes, Filter{FolderID: models.FolderTrash}); len(trashed) > 0 {
			s.sel.NoteID = trashed[0].ID
		}
	}
	s.notify(models.EventSelectionChanged, s.sel)
	return s.sel, nil
}

// SelectNote selects a note, flushing the previously selected one. An
// empty id clears the note selection.
func (s *Service) SelectNote(id string) (Selection, error) {
	if s.Selection().NoteID != id {
		s.flushSelected()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.noteIndex(id) < 0 {
		return s.sel, fmt.Errorf("note %q: %w", id, apperr.ErrNotFound)
	}
	s.sel.NoteID = id
	s.notify(models.EventSelectionChanged, s.sel)
	return s.sel, nil
}

// SelectTag filters the list by tag across folders. An empty tag returns
// to the folder view.
func (s *Service) SelectTag(tag string) Selection {
	s.flushSelected()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Tag = strings.ToLower(strings.TrimSpace(tag))
	s.sel.NoteID = ""
	s.notify(models.EventSelectionChanged, s.sel)
	return s.sel
}

// SetSearch sets the list search term.
func (s *Service) SetSearch(term string) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Search = term
	return s.sel
}
