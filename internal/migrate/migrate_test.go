package migrate

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/testutil"
	"github.com/starford/anota/internal/vault"
)

var quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

const legacy = `{
  "folders": [
    {"id": "all", "name": "All Notes", "system": true},
    {"id": "trash", "name": "Recently Deleted", "system": true},
    {"id": "work", "name": "Work", "system": false},
    {"id": "assets", "name": "Assets", "system": false}
  ],
  "notes": [
    {"id": "a1", "title": "Plan", "content": "# Plan\n- [ ] ship", "folderId": "work",
     "createdAt": "2023-05-01T10:00:00.000Z", "modifiedAt": "2023-05-02T10:00:00.000Z", "tags": ["q2"]},
    {"id": "a2", "title": "", "content": "", "folderId": "all", "createdAt": "2023-05-01T10:00:00.000Z"},
    {"id": "a3", "title": "Old", "content": "bye", "folderId": "trash", "previousFolderId": "work",
     "createdAt": "2023-05-01T10:00:00.000Z", "modifiedAt": "2023-05-03T10:00:00.000Z"},
    {"id": "a4", "title": "Orphan", "content": "x", "folderId": "ideas"},
    {"id": "a5", "title": "Bad folder", "content": "x", "folderId": "assets"},
    {"id": "", "title": "No id"}
  ]
}`

func TestRun(t *testing.T) {
	store, root := testutil.TestVault(t, vault.WithLogger(quiet))
	s, err := Decode(strings.NewReader(legacy))
	if err != nil {
		t.Fatal(err)
	}

	rep, err := Run(s, store, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Notes != 5 {
		t.Errorf("notes = %d, want 5", rep.Notes)
	}
	if strings.Join(rep.Folders, ",") != "work,ideas" {
		t.Errorf("folders = %v", rep.Folders)
	}
	if _, ok := rep.Skipped["assets"]; !ok {
		t.Errorf("reserved folder not skipped: %v", rep.Skipped)
	}

	for _, rel := range []string{"work/a1.md", "a2.md", "trash/a3.md", "ideas/a4.md", "a5.md"} {
		if !testutil.FileExists(t, root, rel) {
			t.Errorf("%s missing", rel)
		}
	}

	v, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]models.Note{}
	for _, n := range v.Notes {
		byID[n.ID] = n
	}
	if n := byID["a1"]; n.Title != "Plan" || n.Content != "# Plan\n- [ ] ship" || len(n.Tags) != 1 {
		t.Errorf("a1 = %+v", n)
	}
	if n := byID["a2"]; n.Title != "Untitled Note" || !n.ModifiedAt.Equal(n.CreatedAt) {
		t.Errorf("a2 = %+v", n)
	}
	if n := byID["a3"]; !n.InTrash() || n.PreviousFolderID != "work" {
		t.Errorf("a3 = %+v", n)
	}
}

func TestRun_ExistingFolderReused(t *testing.T) {
	store, root := testutil.TestVault(t, vault.WithLogger(quiet))
	if err := os.Mkdir(filepath.Join(root, "work"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := &Storage{
		Folders: []Folder{{ID: "work", Name: "Work"}},
		Notes:   []Note{{ID: "a1", Content: "x", FolderID: "work"}},
	}
	rep, err := Run(s, store, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Notes != 1 || len(rep.Skipped) != 0 {
		t.Errorf("report = %+v", rep)
	}
	if !testutil.FileExists(t, root, "work/a1.md") {
		t.Error("note not written")
	}
}

func TestFile(t *testing.T) {
	store, root := testutil.TestVault(t, vault.WithLogger(quiet))
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := File(path, store, quiet); err != nil {
		t.Fatal(err)
	}
	if !testutil.FileExists(t, root, "trash") {
		t.Error("trash not created")
	}

	if _, err := File(filepath.Join(t.TempDir(), "missing.json"), store, quiet); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode(strings.NewReader("{")); err == nil {
		t.Error("expected error")
	}
}
