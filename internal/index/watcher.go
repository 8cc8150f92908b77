package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/vault"
)

// Watcher event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change with the
// note id and its vault-relative path.
type EventCallback func(kind, id, rel string)

// Watch starts an fsnotify watcher on the vault root and its folder
// directories and keeps the index in step with note files changed on disk
// until ctx is cancelled. It calls cb (if non-nil) after each successful
// index mutation.
//
// Folder directories created at runtime are added to the watch list.
// Rename events trigger a debounced reconciliation pass against the vault.
func Watch(ctx context.Context, db *DB, store *vault.Store, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addVaultDirs(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	notify := func(kind, id, rel string) {
		if cb != nil {
			cb(kind, id, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || !watched(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if strings.Contains(filepath.ToSlash(rel), "/") {
						continue
					}
					if addErr := w.Add(ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					// A renamed folder arrives with its notes already inside.
					scheduleReconcile()
					continue
				}
			}

			if !strings.HasSuffix(rel, ".md") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				n, readErr := store.ReadNoteFile(rel)
				if readErr != nil {
					if vault.IsParseSkip(readErr) {
						logger.Debug("watcher: not a note", slog.String("path", rel))
					} else {
						logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					}
					continue
				}
				kind := EventUpdated
				if _, getErr := db.GetNote(n.ID); getErr != nil {
					kind = EventCreated
				}
				if idxErr := db.IndexNote(n); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				notify(kind, n.ID, rel)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				id, delErr := db.DeleteByPath(filepath.ToSlash(rel))
				if delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				if id != "" {
					logger.Debug("watcher: deleted", slog.String("path", rel))
					notify(EventDeleted, id, rel)
				}
				if ev.Op&fsnotify.Rename != 0 {
					// fsnotify reports only the old name; the new one may
					// arrive as a Create or not at all.
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile re-syncs the index from the vault and reports the ids that
// appeared or disappeared.
func reconcile(db *DB, store *vault.Store, logger *slog.Logger, notify EventCallback) {
	before, err := db.AllIDs()
	if err != nil {
		logger.Warn("reconcile: all ids failed", slog.String("error", err.Error()))
		return
	}
	v, err := store.Load()
	if err != nil {
		logger.Warn("reconcile: load failed", slog.String("error", err.Error()))
		return
	}
	if err := Rebuild(db, v.Notes, logger); err != nil {
		logger.Warn("reconcile: rebuild failed", slog.String("error", err.Error()))
		return
	}
	now := make(map[string]struct{}, len(v.Notes))
	for _, n := range v.Notes {
		now[n.ID] = struct{}{}
		if _, ok := before[n.ID]; !ok {
			notify(EventCreated, n.ID, vault.NotePath(n.FolderID, n.ID))
		}
	}
	for id := range before {
		if _, ok := now[id]; !ok {
			notify(EventDeleted, id, "")
		}
	}
}

// watched reports whether rel can hold notes: the root, a folder directory
// or a file directly inside one of those.
func watched(rel string) bool {
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	if len(parts) > 2 {
		return false
	}
	for _, p := range parts {
		if strings.HasPrefix(p, ".") && p != "." {
			return false
		}
	}
	if len(parts) == 2 || !strings.HasSuffix(rel, ".md") {
		switch parts[0] {
		case models.AssetsDir, models.FolderAll:
			return false
		}
	}
	return true
}

// addVaultDirs adds root and its folder directories to the watcher.
func addVaultDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == root {
			return w.Add(path)
		}
		rel, _ := filepath.Rel(root, path)
		// Folders are one level deep.
		if !watched(rel) || strings.Contains(filepath.ToSlash(rel), "/") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
