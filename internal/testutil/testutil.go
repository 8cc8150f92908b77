// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/anota/internal/index"
	"github.com/starford/anota/internal/storage"
	"github.com/starford/anota/internal/vault"
)

// TestDB creates a temporary SQLite search index that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory and a store over it.
func TestVault(t *testing.T, opts ...vault.Option) (*vault.Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := vault.Open(dir, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s, s.Root()
}

// TestVaultWithFaults is TestVault with a FaultProvider between the store
// and the file system.
func TestVaultWithFaults(t *testing.T, opts ...vault.Option) (*vault.Store, *FaultProvider, string) {
	t.Helper()
	fsys, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fp := NewFaultProvider(fsys)
	return vault.New(fsys.Root(), fp, opts...), fp, fsys.Root()
}

// WriteFile writes a raw file under root, creating directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// FileExists reports whether rel exists under root.
func FileExists(t *testing.T, root, rel string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FaultProvider wraps a storage.Provider, records every call and can be
// told to fail selected operations. It simulates a process that stops
// between two steps of a vault operation.
type FaultProvider struct {
	storage.Provider

	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

// NewFaultProvider wraps p.
func NewFaultProvider(p storage.Provider) *FaultProvider {
	return &FaultProvider{Provider: p, fail: map[string]error{}}
}

// FailOn makes every later call of op ("Write", "Delete", ...) return err.
// A nil err clears the fault.
func (f *FaultProvider) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Calls returns the recorded operation names in call order.
func (f *FaultProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Reset clears the recorded calls.
func (f *FaultProvider) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FaultProvider) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *FaultProvider) Read(path string) ([]byte, error) {
	if err := f.record("Read"); err != nil {
		return nil, err
	}
	return f.Provider.Read(path)
}

func (f *FaultProvider) Write(path string, content []byte) error {
	if err := f.record("Write"); err != nil {
		return err
	}
	return f.Provider.Write(path, content)
}

func (f *FaultProvider) Delete(path string) error {
	if err := f.record("Delete"); err != nil {
		return err
	}
	return f.Provider.Delete(path)
}

func (f *FaultProvider) Move(oldPath, newPath string) error {
	if err := f.record("Move"); err != nil {
		return err
	}
	return f.Provider.Move(oldPath, newPath)
}

func (f *FaultProvider) Exists(path string) (bool, error) {
	if err := f.record("Exists"); err != nil {
		return false, err
	}
	return f.Provider.Exists(path)
}

func (f *FaultProvider) ListFiles(dir, ext string) ([]string, error) {
	if err := f.record("ListFiles"); err != nil {
		return nil, err
	}
	return f.Provider.ListFiles(dir, ext)
}

func (f *FaultProvider) ListDirs(dir string) ([]string, error) {
	if err := f.record("ListDirs"); err != nil {
		return nil, err
	}
	return f.Provider.ListDirs(dir)
}

func (f *FaultProvider) MakeDir(dir string) error {
	if err := f.record("MakeDir"); err != nil {
		return err
	}
	return f.Provider.MakeDir(dir)
}

func (f *FaultProvider) RemoveDir(dir string) error {
	if err := f.record("RemoveDir"); err != nil {
		return err
	}
	return f.Provider.RemoveDir(dir)
}

func (f *FaultProvider) Abs(path string) (string, error) {
	if err := f.record("Abs"); err != nil {
		return "", err
	}
	return f.Provider.Abs(path)
}
