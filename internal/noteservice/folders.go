package noteservice

import (
	"fmt"
	"strings"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/vault"
)

// CreateFolder creates a user folder. Names are compared case-insensitively
// against existing folders.
func (s *Service) CreateFolder(name string) (models.Folder, error) {
	name = strings.TrimSpace(name)
	if err := vault.ValidateFolderName(name); err != nil {
		return models.Folder{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.folderNameTaken(name, "") {
		return models.Folder{}, fmt.Errorf("folder %q: %w", name, apperr.ErrAlreadyExists)
	}
	f, err := s.store.CreateFolder(name)
	if err != nil {
		return models.Folder{}, err
	}
	s.folders = append(s.folders, f)
	s.notify(models.EventFolderCreated, f)
	return f, nil
}

// RenameFolder renames a user folder and re-homes its notes in memory.
func (s *Service) RenameFolder(id, newName string) (models.Folder, error) {
	newName = strings.TrimSpace(newName)
	s.saver.FlushAll()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.folderIndex(id)
	if i < 0 {
		return models.Folder{}, fmt.Errorf("folder %q: %w", id, apperr.ErrNotFound)
	}
	if models.IsSystemFolder(id) {
		return models.Folder{}, fmt.Errorf("%w: system folder %q cannot be renamed", apperr.ErrInvalidName, id)
	}
	if err := vault.ValidateFolderName(newName); err != nil {
		return models.Folder{}, err
	}
	if s.folderNameTaken(newName, id) {
		return models.Folder{}, fmt.Errorf("folder %q: %w", newName, apperr.ErrAlreadyExists)
	}
	f, err := s.store.RenameFolder(id, newName)
	if err != nil {
		return models.Folder{}, err
	}
	f.Color = s.folders[i].Color
	s.folders[i] = f

	for j := range s.notes {
		n := &s.notes[j]
		switch {
		case n.FolderID == id:
			n.FolderID = f.ID
			s.indexNote(*n)
		case n.InTrash() && n.PreviousFolderID == id:
			n.PreviousFolderID = f.ID
		}
	}
	if s.sel.FolderID == id {
		s.sel.FolderID = f.ID
	}
	s.notify(models.EventFolderRenamed, map[string]string{"from": id, "to": f.ID})
	return f, nil
}

// DeleteFolder moves the folder's notes into trash and removes the folder.
// It returns the ids of the notes moved, also when it fails part way.
func (s *Service) DeleteFolder(id string) ([]string, error) {
	s.saver.FlushAll()

	s.mu.Lock()
	defer s.mu.Unlock()

	if models.IsSystemFolder(id) {
		return nil, fmt.Errorf("%w: system folder %q cannot be deleted", apperr.ErrInvalidName, id)
	}
	fi := s.folderIndex(id)
	if fi < 0 {
		return nil, fmt.Errorf("folder %q: %w", id, apperr.ErrNotFound)
	}

	var inFolder []models.Note
	for _, n := range s.notes {
		if n.FolderID == id {
			inFolder = append(inFolder, n)
		}
	}

	moved, err := s.store.DeleteFolder(id, inFolder)

	// Memory follows what reached disk, even on failure.
	done := make(map[string]bool, len(moved))
	for _, mid := range moved {
		done[mid] = true
		if i := s.noteIndex(mid); i >= 0 {
			s.notes[i].PreviousFolderID = id
			s.notes[i].FolderID = models.FolderTrash
			s.indexNote(s.notes[i])
		}
	}
	if err != nil {
		return moved, err
	}

	// Notes whose file was already gone went nowhere.
	for _, n := range inFolder {
		if !done[n.ID] {
			if i := s.noteIndex(n.ID); i >= 0 {
				s.removeNote(i)
				s.unindexNote(n.ID)
			}
		}
	}
	s.folders = append(s.folders[:fi], s.folders[fi+1:]...)
	if s.sel.FolderID == id {
		s.sel = Selection{FolderID: models.FolderAll}
	}
	s.notify(models.EventFolderDeleted, map[string]any{"id": id, "moved": moved})
	return moved, nil
}

// folderNameTaken reports whether name collides with a folder other than
// except.
func (s *Service) folderNameTaken(name, except string) bool {
	for _, f := range s.folders {
		if f.ID == except {
			continue
		}
		if strings.EqualFold(f.ID, name) || strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}
