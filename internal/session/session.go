// Package session remembers the last opened vault between runs.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const stateFile = "anota/session.yaml"

// State is what is kept between runs.
type State struct {
	VaultPath string    `yaml:"vault_path"`
	OpenedAt  time.Time `yaml:"opened_at"`
}

// Store reads and writes the state file.
type Store struct {
	path string
}

// Default returns a Store in the XDG state directory.
func Default() (*Store, error) {
	p, err := xdg.StateFile(stateFile)
	if err != nil {
		return nil, fmt.Errorf("session: state dir: %w", err)
	}
	return &Store{path: p}, nil
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load returns the saved state. A missing file is an empty state.
func (s *Store) Load() (State, error) {
	var st State
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("session: read: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("session: parse %s: %w", s.path, err)
	}
	return st, nil
}

// Remember records root as the last opened vault.
func (s *Store) Remember(root string, now time.Time) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	data, err := yaml.Marshal(State{VaultPath: abs, OpenedAt: now.UTC()})
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return nil
}

// Forget clears the remembered vault.
func (s *Store) Forget() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// LastVault returns the remembered vault if it still exists, or "".
func (s *Store) LastVault() (string, error) {
	st, err := s.Load()
	if err != nil || st.VaultPath == "" {
		return "", err
	}
	info, err := os.Stat(st.VaultPath)
	if err != nil || !info.IsDir() {
		return "", nil //nolint:nilerr // a vanished vault is simply not remembered
	}
	return st.VaultPath, nil
}
