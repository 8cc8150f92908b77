// Package noteservice holds the in-memory state of an open vault and
// coordinates every change between that state, the vault files and the
// search cache.
//
// Edits to note content update memory at once and reach disk after a
// quiet period; every operation that moves or removes a note flushes the
// pending save first. When a vault call fails the in-memory state is left
// as it was.
package noteservice

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/debounce"
	"github.com/starford/anota/internal/document"
	"github.com/starford/anota/internal/index"
	"github.com/starford/anota/internal/markdown"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/textutil"
	"github.com/starford/anota/internal/vault"
)

// DefaultSaveDelay is the quiet period before an edited note is written.
const DefaultSaveDelay = time.Second

// Publisher receives change events.
type Publisher interface {
	Notify(kind string, data any)
}

// Filter selects notes for a list.
type Filter struct {
	FolderID string
	Search   string
	Tag      string
}

// Service coordinates storage and index operations.
type Service struct {
	store    *vault.Store
	conv     *markdown.Converter
	db       *index.DB
	pub      Publisher
	logger   *slog.Logger
	clock    vault.Clock
	newID    func() string
	titleMax int
	saver    *debounce.Debouncer

	mu      sync.Mutex
	notes   []models.Note
	folders []models.Folder
	sel     Selection
	saveErr map[string]error
}

// Option configures a Service.
type Option func(*Service)

// WithIndex keeps db in step with every change.
func WithIndex(db *index.DB) Option {
	return func(s *Service) { s.db = db }
}

// WithPublisher sends change events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock used for timestamps.
func WithClock(c vault.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithSaveDelay sets the quiet period before edits are written.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Service) { s.saver = debounce.New(d) }
}

// WithTitleMaxLength sets the maximum derived title length.
func WithTitleMaxLength(n int) Option {
	return func(s *Service) { s.titleMax = n }
}

// WithIDGenerator replaces the uuid generator for new notes.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// Open loads the vault behind store and returns a Service over it.
func Open(store *vault.Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:    store,
		logger:   slog.Default(),
		clock:    clockFunc(time.Now),
		newID:    uuid.NewString,
		titleMax: textutil.DefaultMaxLength,
		saver:    debounce.New(DefaultSaveDelay),
		saveErr:  make(map[string]error),
		sel:      Selection{FolderID: models.FolderAll},
	}
	for _, o := range opts {
		o(s)
	}
	s.conv = markdown.NewConverter(s.logger)

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload flushes pending saves and re-reads the vault from disk. The
// selection is kept where it still points at something.
func (s *Service) Reload() error {
	s.saver.FlushAll()
	v, err := s.store.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.notes = v.Notes
	s.folders = v.Folders
	if s.folderIndex(s.sel.FolderID) < 0 {
		s.sel.FolderID = models.FolderAll
	}
	if s.noteIndex(s.sel.NoteID) < 0 {
		s.sel.NoteID = ""
	}
	notes := append([]models.Note(nil), s.notes...)
	s.mu.Unlock()

	if s.db != nil {
		if err := index.Rebuild(s.db, notes, s.logger); err != nil {
			s.logger.Warn("noteservice: index rebuild failed", slog.String("error", err.Error()))
		}
	}
	s.logger.Info("noteservice: vault loaded",
		slog.String("root", s.store.Root()),
		slog.Int("notes", len(notes)),
	)
	return nil
}

// Root returns the vault root.
func (s *Service) Root() string { return s.store.Root() }

// Store returns the underlying vault store.
func (s *Service) Store() *vault.Store { return s.store }

// Converter returns the document converter.
func (s *Service) Converter() *markdown.Converter { return s.conv }

// Close writes all pending edits. Later edits are not saved.
func (s *Service) Close() error {
	s.saver.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(mapValues(s.saveErr)...)
}

// Notes returns the notes matching f, newest first.
func (s *Service) Notes(f Filter) []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterNotes(s.notes, f)
}

func filterNotes(notes []models.Note, f Filter) []models.Note {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if !inScope(n, f) {
			continue
		}
		if term != "" && !matches(n, term) {
			continue
		}
		out = append(out, n)
	}
	vault.SortNotes(out)
	return out
}

// inScope applies the tag filter, which overrides the folder.
func inScope(n models.Note, f Filter) bool {
	if f.Tag != "" {
		return !n.InTrash() && n.HasTag(f.Tag)
	}
	switch f.FolderID {
	case "", models.FolderAll:
		return !n.InTrash()
	default:
		return n.FolderID == f.FolderID
	}
}

func matches(n models.Note, term string) bool {
	if strings.Contains(strings.ToLower(n.Title), term) || strings.Contains(strings.ToLower(n.Content), term) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

// Note returns the note with id.
func (s *Service) Note(id string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.noteIndex(id)
	if i < 0 {
		return models.Note{}, fmt.Errorf("note %q: %w", id, apperr.ErrNotFound)
	}
	return s.notes[i], nil
}

// Document returns the note content as a block tree.
func (s *Service) Document(id string) (*document.Document, error) {
	n, err := s.Note(id)
	if err != nil {
		return nil, err
	}
	return s.conv.FromMarkdown(n.Content), nil
}

// Preview returns the one-line list preview of a note.
func (s *Service) Preview(id string) (string, error) {
	n, err := s.Note(id)
	if err != nil {
		return "", err
	}
	return textutil.CreateNotePreview(n.Content, textutil.DefaultMaxLength), nil
}

// Folders returns the system folders followed by the user folders.
func (s *Service) Folders() []models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Folder(nil), s.folders...)
}

// Tags returns every tag used by a note outside trash, sorted.
func (s *Service) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, n := range s.notes {
		if n.InTrash() {
			continue
		}
		for _, t := range n.Tags {
			t = strings.ToLower(t)
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Search queries the search cache, or scans memory when there is none.
func (s *Service) Search(query string, limit int) ([]index.SearchResult, error) {
	if s.db != nil {
		return s.db.Search(query, limit)
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	var out []index.SearchResult
	for _, n := range s.Notes(Filter{Search: query}) {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, index.SearchResult{
			ID:       n.ID,
			Title:    n.Title,
			FolderID: n.FolderID,
			Snippet:  textutil.CreateNotePreview(n.Content, 200),
		})
	}
	return out, nil
}

// CreateNote creates an empty note in folderID and selects it. System or
// unknown folders put the note in all.
func (s *Service) CreateNote(folderID string) (models.Note, error) {
	s.flushSelected()

	s.mu.Lock()
	defer s.mu.Unlock()

	if models.IsSystemFolder(folderID) || s.folderIndex(folderID) < 0 {
		folderID = models.FolderAll
	}
	now := s.clock.Now()
	n := models.Note{
		ID:         s.newID(),
		Title:      textutil.DefaultTitle,
		FolderID:   folderID,
		CreatedAt:  now,
		ModifiedAt: now,
		Tags:       []string{},
	}
	if err := s.store.SaveNote(n); err != nil {
		return models.Note{}, err
	}
	s.notes = append([]models.Note{n}, s.notes...)
	s.sel.NoteID = n.ID
	s.indexNote(n)
	s.notify(models.EventNoteSaved, n)
	return n, nil
}

// DeleteNote soft-deletes a note into trash, or removes it for good when
// it is already there. A note missing from trash on disk is reported in
// the result and dropped from memory.
func (s *Service) DeleteNote(id string) (vault.Result, error) {
	s.saver.Flush(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.noteIndex(id)
	if i < 0 {
		return vault.Result{}, fmt.Errorf("note %q: %w", id, apperr.ErrNotFound)
	}
	n := s.notes[i]

	if n.InTrash() {
		res, err := s.store.DeleteNotePermanently(id)
		if err != nil {
			return vault.Result{}, err
		}
		s.removeNote(i)
		s.unindexNote(id)
		s.notify(models.EventNoteDeleted, map[string]string{"id": id})
		return res, nil
	}

	m := n
	m.PreviousFolderID = n.FolderID
	m.FolderID = models.FolderTrash
	if err := s.store.SaveNote(m); err != nil {
		return vault.Result{}, err
	}
	s.notes[i] = m
	if s.sel.NoteID == id && s.sel.FolderID != models.FolderTrash && s.sel.Tag == "" {
		s.sel.NoteID = ""
	}
	s.indexNote(m)
	s.notify(models.EventNoteTrashed, m)
	return vault.Result{Success: true}, nil
}

// RecoverNote moves a trashed note back to the folder it came from, or to
// all when that folder is gone.
func (s *Service) RecoverNote(id string) (models.Note, error) {
	s.saver.Flush(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.noteIndex(id)
	if i < 0 {
		return models.Note{}, fmt.Errorf("note %q: %w", id, apperr.ErrNotFound)
	}
	n := s.notes[i]
	if !n.InTrash() {
		return models.Note{}, fmt.Errorf("note %q is not in trash: %w", id, apperr.ErrConflict)
	}

	target := models.FolderAll
	if p := n.PreviousFolderID; p != "" && !models.IsSystemFolder(p) && s.folderIndex(p) >= 0 {
		target = p
	}
	if err := s.store.RecoverNote(id, target); err != nil {
		return models.Note{}, err
	}
	n.FolderID = target
	n.PreviousFolderID = ""
	s.notes[i] = n
	s.indexNote(n)
	s.notify(models.EventNoteRecovered, n)
	return n, nil
}

// MoveNote moves a note into another folder. Trash is not a valid target;
// use DeleteNote.
func (s *Service) MoveNote(id, folderID string) (models.Note, error) {
	s.saver.Flush(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.noteIndex(id)
	if i < 0 {
		return models.Note{}, fmt.Errorf("note %q: %w", id, apperr.ErrNotFound)
	}
	if folderID == models.FolderTrash {
		return models.Note{}, fmt.Errorf("%w: move to trash with delete", apperr.ErrInvalidName)
	}
	if s.folderIndex(folderID) < 0 {
		return models.Note{}, fmt.Errorf("folder %q: %w", folderID, apperr.ErrNotFound)
	}
	n := s.notes[i]
	if n.FolderID == folderID {
		return n, nil
	}
	m := n
	m.FolderID = folderID
	m.PreviousFolderID = ""
	if err := s.store.MoveNote(m, n.FolderID); err != nil {
		return models.Note{}, err
	}
	s.notes[i] = m
	s.indexNote(m)
	s.notify(models.EventNoteMoved, map[string]string{"id": id, "from": n.FolderID, "to": folderID})
	return m, nil
}

func (s *Service) noteIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) folderIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.folders {
		if s.folders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) removeNote(i int) {
	id := s.notes[i].ID
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	if s.sel.NoteID == id {
		s.sel.NoteID = ""
	}
	delete(s.saveErr, id)
}

func (s *Service) indexNote(n models.Note) {
	if s.db == nil {
		return
	}
	if err := s.db.IndexNote(n); err != nil {
		s.logger.Warn("noteservice: index update failed", slog.String("id", n.ID), slog.String("error", err.Error()))
	}
}

func (s *Service) unindexNote(id string) {
	if s.db == nil {
		return
	}
	if err := s.db.DeleteNote(id); err != nil {
		s.logger.Warn("noteservice: index delete failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

func (s *Service) notify(kind string, data any) {
	if s.pub != nil {
		s.pub.Notify(kind, data)
	}
}

func mapValues(m map[string]error) []error {
	out := make([]error, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
