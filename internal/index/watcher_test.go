package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/anota/internal/vault"
)

// watcherTestEnv sets up a vault store and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, *vault.Store, *DB) {
	t.Helper()
	store, err := vault.Open(t.TempDir(), vault.WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func noteFile(id, title string) []byte {
	return []byte("---\nid: " + id + "\ntitle: " + title + "\ntags: []\ncreatedAt: \"\"\nmodifiedAt: \"\"\n---\nbody of " + title)
}

func cached(db *DB, id string) bool {
	_, err := db.GetNote(id)
	return err == nil
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, quietLogger(), func(kind, id, rel string) {
		mu.Lock()
		events = append(events, kind+":"+id)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "new.md"), noteFile("new", "New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return cached(db, "new")
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new" {
				return true
			}
		}
		return false
	}, "expected created:new callback")
}

func TestWatcher_SkipsPlainMarkdown(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "readme.md"), []byte("# just markdown"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "real.md"), noteFile("real", "Real"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return cached(db, "real")
	}, "note not indexed")
	if cached(db, "readme") {
		t.Error("file without front matter was indexed")
	}
}

func TestWatcher_NewFolderWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(root, "projects")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(sub, "deep.md"), noteFile("deep", "Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		r, err := db.GetNote("deep")
		return err == nil && r.FolderID == "projects"
	}, "note in new folder not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, "del.md"), noteFile("del", "Delete Me"), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if !cached(db, "del") {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !cached(db, "del")
	}, "deleted file still in index")
}

func TestWatcher_MoveKeepsNote(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	_ = os.MkdirAll(filepath.Join(root, "trash"), 0o755)
	_ = os.WriteFile(filepath.Join(root, "mv.md"), noteFile("mv", "Move"), 0o644)
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "mv.md"), filepath.Join(root, "trash", "mv.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		r, err := db.GetNote("mv")
		return err == nil && r.FolderID == "trash"
	}, "moved note not re-indexed under trash")
}

func TestWatched(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{".", true},
		{"a.md", true},
		{"work", true},
		{"work/a.md", true},
		{"work/sub/a.md", false},
		{"assets", false},
		{"assets/x.png", false},
		{"all/a.md", false},
		{".anota-tmp-123", false},
		{"work/.anota-tmp-1", false},
	}
	for _, tt := range tests {
		if got := watched(tt.rel); got != tt.want {
			t.Errorf("watched(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}
