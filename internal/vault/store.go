// Package vault persists notes, folders and assets in a vault directory.
//
// The file system is the database: every operation is a direct file read,
// write or rename with no transaction across operations. Moves write the new
// file before deleting the old one, so an interrupted move leaves a harmless
// duplicate rather than no copy at all.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/frontmatter"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/storage"
)

const noteExt = ".md"

// Clock abstracts time retrieval so asset names are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Result reports an operation whose not-found outcome is routine.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Store is a vault rooted at one directory.
type Store struct {
	root   string
	fs     storage.Provider
	clock  Clock
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for asset names.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open returns a Store for the vault at root. A missing root yields an
// error matching apperr.ErrVaultMissing.
func Open(root string, opts ...Option) (*Store, error) {
	fsys, err := storage.NewFS(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", apperr.ErrVaultMissing, err)
		}
		return nil, apperr.Op("open", root, "", err)
	}
	return New(fsys.Root(), fsys, opts...), nil
}

// New returns a Store over an existing provider.
func New(root string, p storage.Provider, opts ...Option) *Store {
	s := &Store{
		root:   root,
		fs:     p,
		clock:  systemClock{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Root returns the vault root directory.
func (s *Store) Root() string { return s.root }

// EnsureLayout creates the trash directory if it is missing.
func (s *Store) EnsureLayout() error {
	ok, err := s.fs.Exists(models.FolderTrash)
	if err != nil {
		return apperr.Op("init", models.FolderTrash, "", err)
	}
	if ok {
		return nil
	}
	return apperr.Op("init", models.FolderTrash, "", s.fs.MakeDir(models.FolderTrash))
}

// folderDir maps a folder id to its directory. The all folder is the root
// itself and never a path segment.
func folderDir(folderID string) string {
	if folderID == "" || folderID == models.FolderAll {
		return ""
	}
	return folderID
}

// NotePath returns the vault-relative file path of a note.
func NotePath(folderID, id string) string {
	return path.Join(folderDir(folderID), id+noteExt)
}

// FolderOf maps a vault-relative note path back to its folder id.
func FolderOf(rel string) string {
	dir := path.Dir(filepath.ToSlash(rel))
	if dir == "." || dir == "" {
		return models.FolderAll
	}
	return dir
}

// Load enumerates folders and notes. Files without front matter are
// skipped. Notes are ordered by modification time, newest first.
func (s *Store) Load() (*models.Vault, error) {
	ok, err := s.fs.Exists("")
	if err != nil {
		return nil, apperr.Op("load", s.root, "", err)
	}
	if !ok {
		return nil, apperr.Op("load", s.root, "", apperr.ErrVaultMissing)
	}

	dirs, err := s.fs.ListDirs("")
	if err != nil {
		return nil, apperr.Op("load", s.root, "", err)
	}

	v := &models.Vault{Root: s.root, Folders: models.SystemFolders()}
	notes, err := s.readNotes("", models.FolderAll)
	if err != nil {
		return nil, err
	}
	v.Notes = append(v.Notes, notes...)

	for _, dir := range dirs {
		switch dir {
		case models.FolderTrash, models.AssetsDir:
			continue
		case models.FolderAll:
			s.logger.Warn("vault: ignoring directory named like the all folder", slog.String("dir", dir))
			continue
		}
		v.Folders = append(v.Folders, models.Folder{ID: dir, Name: dir, Color: models.DefaultFolderColor})
		notes, err := s.readNotes(dir, dir)
		if err != nil {
			return nil, err
		}
		v.Notes = append(v.Notes, notes...)
	}

	if ok, err := s.fs.Exists(models.FolderTrash); err != nil {
		return nil, apperr.Op("load", models.FolderTrash, "", err)
	} else if ok {
		notes, err := s.readNotes(models.FolderTrash, models.FolderTrash)
		if err != nil {
			return nil, err
		}
		v.Notes = append(v.Notes, notes...)
	}

	v.Notes = s.dedupe(v.Notes)
	for i := range v.Notes {
		// Left by a move interrupted after the source copy was removed.
		if !v.Notes[i].InTrash() {
			v.Notes[i].PreviousFolderID = ""
		}
	}
	SortNotes(v.Notes)
	return v, nil
}

// SortNotes orders notes newest first.
func SortNotes(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].ModifiedAt.After(notes[j].ModifiedAt)
	})
}

func (s *Store) readNotes(dir, folderID string) ([]models.Note, error) {
	names, err := s.fs.ListFiles(dir, noteExt)
	if err != nil {
		return nil, apperr.Op("load", dir, "", err)
	}
	out := make([]models.Note, 0, len(names))
	for _, name := range names {
		rel := path.Join(dir, name)
		n, err := s.readNote(rel, folderID)
		if err != nil {
			if IsParseSkip(err) {
				s.logger.Debug("vault: skipping file", slog.String("path", rel), slog.String("reason", err.Error()))
				continue
			}
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ReadNoteFile reads a single note by its vault-relative path.
func (s *Store) ReadNoteFile(rel string) (models.Note, error) {
	return s.readNote(filepath.ToSlash(rel), FolderOf(rel))
}

func (s *Store) readNote(rel, folderID string) (models.Note, error) {
	data, err := s.fs.Read(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
		}
		return models.Note{}, apperr.Op("read", rel, "", err)
	}
	m, body, err := frontmatter.DecodeFile(rel, data)
	if err != nil {
		return models.Note{}, err
	}
	if stem := frontmatter.Stem(rel); m.ID != stem {
		s.logger.Warn("vault: header id differs from file name, using file name",
			slog.String("path", rel), slog.String("id", m.ID))
		m.ID = stem
	}
	return models.Note{
		ID:               m.ID,
		Title:            m.Title,
		Content:          body,
		FolderID:         folderID,
		PreviousFolderID: m.PreviousFolderID,
		CreatedAt:        parseTime(m.CreatedAt),
		ModifiedAt:       parseTime(m.ModifiedAt),
		Tags:             m.Tags,
	}, nil
}

// IsParseSkip reports whether err means the file is not a note and was skipped.
func IsParseSkip(err error) bool {
	return errors.Is(err, frontmatter.ErrNoFrontMatter) || errors.Is(err, frontmatter.ErrInvalidFrontMatter)
}

// dedupe collapses copies of one note left behind by an interrupted move.
// The newer copy wins; on a tie, the copy that records the other as its
// previous folder is the move destination and wins. When the winner is
// such a destination the move is finished by removing the source copy.
func (s *Store) dedupe(notes []models.Note) []models.Note {
	seen := make(map[string]int, len(notes))
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		i, dup := seen[n.ID]
		if !dup {
			seen[n.ID] = len(out)
			out = append(out, n)
			continue
		}
		kept, lost := out[i], n
		if preferCopy(n, kept) {
			kept, lost = n, kept
		}
		out[i] = kept
		s.logger.Warn("vault: duplicate note",
			slog.String("id", n.ID),
			slog.String("kept", kept.FolderID),
			slog.String("folders", kept.FolderID+","+lost.FolderID),
		)
		if movedFrom(kept, lost) {
			s.removeCopy(lost)
		}
	}
	return out
}

func preferCopy(a, b models.Note) bool {
	if !a.ModifiedAt.Equal(b.ModifiedAt) {
		return a.ModifiedAt.After(b.ModifiedAt)
	}
	return movedFrom(a, b)
}

// movedFrom reports whether a records b's folder as the one it came from.
func movedFrom(a, b models.Note) bool {
	return a.PreviousFolderID != "" && folderDir(a.PreviousFolderID) == folderDir(b.FolderID)
}

func (s *Store) removeCopy(n models.Note) {
	p := NotePath(n.FolderID, n.ID)
	if err := s.fs.Delete(p); err != nil {
		s.logger.Warn("vault: duplicate not removed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	s.logger.Info("vault: removed duplicate", slog.String("id", n.ID), slog.String("path", p))
}

// SaveNote writes n into its folder. If n.PreviousFolderID names another
// folder that still holds a copy, that copy is deleted after the write.
func (s *Store) SaveNote(n models.Note) error {
	if err := validateID(n.ID); err != nil {
		return apperr.Op("save", "", n.ID, err)
	}
	var stale string
	if n.PreviousFolderID != "" && folderDir(n.PreviousFolderID) != folderDir(n.FolderID) {
		stale = NotePath(n.PreviousFolderID, n.ID)
	}
	return s.writeThenRemove("save", n, stale)
}

// MoveNote writes n into n.FolderID and then removes the copy in
// fromFolderID. Until the source copy is gone the new copy records
// fromFolderID as its previous folder, so Load can tell the two apart.
func (s *Store) MoveNote(n models.Note, fromFolderID string) error {
	if err := validateID(n.ID); err != nil {
		return apperr.Op("move", "", n.ID, err)
	}
	if folderDir(fromFolderID) == folderDir(n.FolderID) {
		return s.writeThenRemove("move", n, "")
	}
	pending := n
	pending.PreviousFolderID = fromFolderID
	if err := s.writeThenRemove("move", pending, NotePath(fromFolderID, n.ID)); err != nil {
		return err
	}
	s.rewriteHeader(NotePath(n.FolderID, n.ID), func(m *frontmatter.Metadata) {
		m.PreviousFolderID = n.PreviousFolderID
	})
	return nil
}

func (s *Store) writeThenRemove(op string, n models.Note, stale string) error {
	target := NotePath(n.FolderID, n.ID)
	if err := s.fs.Write(target, encodeNote(n)); err != nil {
		return apperr.Op(op, target, n.ID, err)
	}
	if stale == "" {
		return nil
	}
	ok, err := s.fs.Exists(stale)
	if err != nil {
		return apperr.Op(op, stale, n.ID, err)
	}
	if !ok {
		return nil
	}
	if err := s.fs.Delete(stale); err != nil {
		return apperr.Op(op, stale, n.ID, err)
	}
	s.logger.Debug("vault: removed previous copy", slog.String("id", n.ID), slog.String("path", stale))
	return nil
}

func encodeNote(n models.Note) []byte {
	return frontmatter.Encode(frontmatter.Metadata{
		ID:               n.ID,
		Title:            n.Title,
		Tags:             n.Tags,
		CreatedAt:        formatTime(n.CreatedAt),
		ModifiedAt:       formatTime(n.ModifiedAt),
		PreviousFolderID: n.PreviousFolderID,
	}, n.Content)
}

// CreateFolder creates a folder directory. Invalid or reserved names are
// rejected before touching the file system.
func (s *Store) CreateFolder(name string) (models.Folder, error) {
	name = strings.TrimSpace(name)
	if err := ValidateFolderName(name); err != nil {
		return models.Folder{}, err
	}
	if err := s.fs.MakeDir(name); err != nil {
		return models.Folder{}, apperr.Op("create folder", name, "", err)
	}
	return models.Folder{ID: name, Name: name, Color: models.DefaultFolderColor}, nil
}

// RenameFolder renames a folder directory. It fails if newName exists.
func (s *Store) RenameFolder(oldID, newName string) (models.Folder, error) {
	newName = strings.TrimSpace(newName)
	if models.IsSystemFolder(oldID) {
		return models.Folder{}, fmt.Errorf("%w: system folder %q cannot be renamed", apperr.ErrInvalidName, oldID)
	}
	if err := ValidateFolderName(newName); err != nil {
		return models.Folder{}, err
	}
	folder := models.Folder{ID: newName, Name: newName, Color: models.DefaultFolderColor}
	if oldID == newName {
		return folder, nil
	}
	// A case-only rename points at the same directory on case-insensitive
	// file systems.
	if !strings.EqualFold(oldID, newName) {
		ok, err := s.fs.Exists(newName)
		if err != nil {
			return models.Folder{}, apperr.Op("rename folder", newName, "", err)
		}
		if ok {
			return models.Folder{}, apperr.Op("rename folder", newName, "", fs.ErrExist)
		}
	}
	if err := s.fs.Move(oldID, newName); err != nil {
		return models.Folder{}, apperr.Op("rename folder", oldID, "", err)
	}
	s.retargetTrash(oldID, newName)
	return folder, nil
}

// retargetTrash points trashed notes that came from oldID at newID, so
// they recover into the renamed folder after a reload. The rename already
// happened, so failures are only logged.
func (s *Store) retargetTrash(oldID, newID string) {
	names, err := s.fs.ListFiles(models.FolderTrash, noteExt)
	if err != nil {
		s.logger.Warn("vault: trash listing failed", slog.String("error", err.Error()))
		return
	}
	for _, name := range names {
		rel := path.Join(models.FolderTrash, name)
		data, err := s.fs.Read(rel)
		if err != nil {
			continue
		}
		m, _, err := frontmatter.DecodeFile(rel, data)
		if err != nil || m.PreviousFolderID != oldID {
			continue
		}
		s.rewriteHeader(rel, func(m *frontmatter.Metadata) { m.PreviousFolderID = newID })
	}
}

// DeleteFolder moves the given notes from the folder into trash and removes
// the directory. Notes whose file is already gone are skipped. If the
// directory still holds files afterwards it is left in place and an
// apperr.ErrConflict error is returned. The ids of the moved notes are
// returned in every case.
func (s *Store) DeleteFolder(folderID string, notes []models.Note) ([]string, error) {
	if models.IsSystemFolder(folderID) || folderID == "" {
		return nil, fmt.Errorf("%w: system folder %q cannot be deleted", apperr.ErrInvalidName, folderID)
	}
	var moved []string
	for _, n := range notes {
		from := NotePath(folderID, n.ID)
		to := NotePath(models.FolderTrash, n.ID)
		ok, err := s.fs.Exists(from)
		if err != nil {
			return moved, apperr.Op("delete folder", from, n.ID, err)
		}
		if !ok {
			s.logger.Debug("vault: note already gone", slog.String("path", from))
			continue
		}
		if err := s.fs.Move(from, to); err != nil {
			return moved, apperr.Op("delete folder", from, n.ID, err)
		}
		moved = append(moved, n.ID)
		s.rewriteHeader(to, func(m *frontmatter.Metadata) { m.PreviousFolderID = folderID })
	}

	left, err := s.leftovers(folderID)
	if err != nil {
		return moved, apperr.Op("delete folder", folderID, "", err)
	}
	if len(left) > 0 {
		return moved, apperr.Op("delete folder", folderID, "",
			fmt.Errorf("%w: folder still contains %s", apperr.ErrConflict, strings.Join(left, ", ")))
	}
	if err := s.fs.RemoveDir(folderID); err != nil {
		return moved, apperr.Op("delete folder", folderID, "", err)
	}
	return moved, nil
}

func (s *Store) leftovers(dir string) ([]string, error) {
	files, err := s.fs.ListFiles(dir, "")
	if err != nil {
		return nil, err
	}
	dirs, err := s.fs.ListDirs(dir)
	if err != nil {
		return nil, err
	}
	return append(files, dirs...), nil
}

// DeleteNotePermanently removes a note from trash. A note that is not in
// trash is reported through Result, not as an error.
func (s *Store) DeleteNotePermanently(id string) (Result, error) {
	if err := validateID(id); err != nil {
		return Result{}, apperr.Op("delete", "", id, err)
	}
	p := NotePath(models.FolderTrash, id)
	ok, err := s.fs.Exists(p)
	if err != nil {
		return Result{}, apperr.Op("delete", p, id, err)
	}
	if !ok {
		return Result{Success: false, Message: "File not found in trash"}, nil
	}
	if err := s.fs.Delete(p); err != nil {
		return Result{}, apperr.Op("delete", p, id, err)
	}
	return Result{Success: true}, nil
}

// RecoverNote renames a note out of trash into targetFolderID and clears
// its recorded previous folder.
func (s *Store) RecoverNote(id, targetFolderID string) error {
	if err := validateID(id); err != nil {
		return apperr.Op("recover", "", id, err)
	}
	if targetFolderID == models.FolderTrash {
		return apperr.Op("recover", "", id, fmt.Errorf("%w: cannot recover into trash", apperr.ErrInvalidName))
	}
	from := NotePath(models.FolderTrash, id)
	ok, err := s.fs.Exists(from)
	if err != nil {
		return apperr.Op("recover", from, id, err)
	}
	if !ok {
		return apperr.Op("recover", from, id, apperr.ErrNotFound)
	}
	to := NotePath(targetFolderID, id)
	if err := s.fs.Move(from, to); err != nil {
		return apperr.Op("recover", to, id, err)
	}
	s.rewriteHeader(to, func(m *frontmatter.Metadata) { m.PreviousFolderID = "" })
	return nil
}

// rewriteHeader edits the front matter of a note in place. The note is
// already where it belongs, so failures are only logged.
func (s *Store) rewriteHeader(rel string, edit func(*frontmatter.Metadata)) {
	data, err := s.fs.Read(rel)
	if err == nil {
		var (
			m    frontmatter.Metadata
			body string
		)
		m, body, err = frontmatter.DecodeFile(rel, data)
		if err == nil {
			edit(&m)
			err = s.fs.Write(rel, frontmatter.Encode(m, body))
		}
	}
	if err != nil {
		s.logger.Warn("vault: header update failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// SaveAsset stores data under assets/ with a timestamped name derived from
// originalName and returns its vault-relative path.
func (s *Store) SaveAsset(data []byte, originalName string) (string, error) {
	now := s.clock.Now()
	var rel string
	for {
		rel = path.Join(models.AssetsDir, assetName(originalName, now))
		ok, err := s.fs.Exists(rel)
		if err != nil {
			return "", apperr.Op("save asset", rel, "", err)
		}
		if !ok {
			break
		}
		now = now.Add(time.Millisecond)
	}
	if err := s.fs.Write(rel, data); err != nil {
		return "", apperr.Op("save asset", rel, "", err)
	}
	return rel, nil
}

// ResolveAssetPath turns a vault-relative asset path into a file URL.
func (s *Store) ResolveAssetPath(rel string) (string, error) {
	abs, err := s.fs.Abs(rel)
	if err != nil {
		return "", apperr.Op("resolve asset", rel, "", err)
	}
	ok, err := s.fs.Exists(rel)
	if err != nil {
		return "", apperr.Op("resolve asset", rel, "", err)
	}
	if !ok {
		return "", apperr.Op("resolve asset", rel, "", apperr.ErrNotFound)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// AssetFile returns the absolute path of an existing asset.
func (s *Store) AssetFile(rel string) (string, error) {
	if _, err := s.ResolveAssetPath(rel); err != nil {
		return "", err
	}
	return s.fs.Abs(rel)
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
