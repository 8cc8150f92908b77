package noteservice

import (
	"fmt"
	"log/slog"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/checksum"
	"github.com/starford/anota/internal/document"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/textutil"
)

// UpdateContent replaces a note's markdown, derives its title and tags and
// schedules the save. Unchanged content is a no-op.
func (s *Service) UpdateContent(id, md string) (models.Note, error) {
	return s.UpdateContentIf(id, md, "")
}

// UpdateContentIf is UpdateContent guarded by the checksum of the content
// the caller last saw. A stale ifMatch fails with ErrConflict; an empty
// one skips the check.
func (s *Service) UpdateContentIf(id, md, ifMatch string) (models.Note, error) {
	s.mu.Lock()
	i := s.noteIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Note{}, fmt.Errorf("note %q: %w", id, apperr.ErrNotFound)
	}
	n := s.notes[i]
	if !checksum.Matches(ifMatch, n.Content) {
		s.mu.Unlock()
		return models.Note{}, fmt.Errorf("note %q: checksum mismatch: %w", id, apperr.ErrConflict)
	}
	if n.Content == md {
		s.mu.Unlock()
		return n, nil
	}
	n.Content = md
	n.Title = textutil.ExtractTitle(md, s.titleMax)
	if n.Title == "" {
		n.Title = textutil.DefaultTitle
	}
	n.Tags = textutil.ExtractTags(s.conv.PlainText(md))
	n.ModifiedAt = s.clock.Now()
	s.notes[i] = n
	s.mu.Unlock()

	s.saver.Schedule(id, func() { s.persist(id) })
	return n, nil
}

// UpdateDocument is UpdateContent for an edited block tree.
func (s *Service) UpdateDocument(id string, doc *document.Document) (models.Note, error) {
	return s.UpdateContent(id, s.conv.ToMarkdown(doc))
}

// ImportNote creates a note in folderID holding md and saves it at once.
func (s *Service) ImportNote(folderID, md string) (models.Note, error) {
	n, err := s.CreateNote(folderID)
	if err != nil {
		return models.Note{}, err
	}
	if md == "" {
		return n, nil
	}
	if n, err = s.UpdateContent(n.ID, md); err != nil {
		return models.Note{}, err
	}
	return n, s.Flush(n.ID)
}

// Flush writes the pending edit of a note now and returns the error of
// its last failed save, if the failure has not been superseded.
func (s *Service) Flush(id string) error {
	s.saver.Flush(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr[id]
}

// Pending reports whether a note has an unsaved edit.
func (s *Service) Pending(id string) bool {
	return s.saver.Pending(id)
}

// persist writes the current in-memory copy of a note. It holds the lock
// across the write so no other operation can move the note meanwhile.
func (s *Service) persist(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.noteIndex(id)
	if i < 0 {
		// Deleted while the save was pending.
		return
	}
	n := s.notes[i]
	if err := s.store.SaveNote(n); err != nil {
		s.saveErr[id] = err
		s.logger.Error("noteservice: save failed", slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	delete(s.saveErr, id)
	s.indexNote(n)
	s.notify(models.EventNoteSaved, n)
}

func (s *Service) flushSelected() {
	s.mu.Lock()
	id := s.sel.NoteID
	s.mu.Unlock()
	if id != "" {
		s.saver.Flush(id)
	}
}
