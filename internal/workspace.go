package internal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/index"
	"github.com/starford/anota/internal/noteservice"
	"github.com/starford/anota/internal/session"
	"github.com/starford/anota/internal/vault"
)

// Workspace is an open vault with its coordinator and optional search
// cache.
type Workspace struct {
	Service *noteservice.Service
	DB      *index.DB
}

// ResolveVaultPath returns the configured vault path, falling back to the
// last vault remembered in sess.
func ResolveVaultPath(cfg *Config, sess *session.Store) (string, error) {
	if cfg.Vault.Path != "" {
		return cfg.Vault.Path, nil
	}
	if sess != nil {
		last, err := sess.LastVault()
		if err != nil {
			return "", err
		}
		if last != "" {
			return last, nil
		}
	}
	return "", fmt.Errorf("%w: no vault configured, set vault.path or run `anota open <dir>`", apperr.ErrVaultMissing)
}

// OpenWorkspace opens the vault at root, creates its trash directory and
// loads it into a coordinator configured from cfg.
func OpenWorkspace(cfg *Config, root string, logger *slog.Logger, extra ...noteservice.Option) (*Workspace, error) {
	store, err := vault.Open(root, vault.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureLayout(); err != nil {
		return nil, err
	}

	opts := []noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithSaveDelay(cfg.Editor.SaveDebounce),
		noteservice.WithTitleMaxLength(cfg.Editor.TitleMaxLength),
	}

	ws := &Workspace{}
	if cfg.Index.Enabled {
		db, err := index.Open(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		ws.DB = db
		opts = append(opts, noteservice.WithIndex(db))
	}

	svc, err := noteservice.Open(store, append(opts, extra...)...)
	if err != nil {
		if ws.DB != nil {
			_ = ws.DB.Close()
		}
		return nil, err
	}
	ws.Service = svc
	return ws, nil
}

// Close writes pending edits and closes the search cache.
func (w *Workspace) Close() error {
	err := w.Service.Close()
	if w.DB != nil {
		err = errors.Join(err, w.DB.Close())
	}
	return err
}
