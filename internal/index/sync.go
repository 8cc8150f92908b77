package index

import (
	"log/slog"

	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/vault"
)

// Sync loads the vault and brings the index up to date.
func Sync(db *DB, store *vault.Store, logger *slog.Logger) error {
	v, err := store.Load()
	if err != nil {
		return err
	}
	return Rebuild(db, v.Notes, logger)
}

// Rebuild makes the index mirror notes:
//   - every note is upserted
//   - cached ids missing from notes are deleted
func Rebuild(db *DB, notes []models.Note, logger *slog.Logger) error {
	cached, err := db.AllIDs()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		seen[n.ID] = struct{}{}
		if err := db.IndexNote(n); err != nil {
			logger.Warn("sync: index failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			continue
		}
	}

	for id := range cached {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := db.DeleteNote(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("id", id))
		}
	}
	logger.Debug("sync: done", slog.Int("notes", len(notes)))
	return nil
}
