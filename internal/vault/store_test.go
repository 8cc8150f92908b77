package vault_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/testutil"
	"github.com/starford/anota/internal/vault"
)

var t0 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func note(id, folder, content string) models.Note {
	return models.Note{
		ID:         id,
		Title:      "Title " + id,
		Content:    content,
		FolderID:   folder,
		CreatedAt:  t0,
		ModifiedAt: t0,
		Tags:       []string{},
	}
}

func load(t *testing.T, s *vault.Store) *models.Vault {
	t.Helper()
	v, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return v
}

func find(v *models.Vault, id string) *models.Note {
	for i := range v.Notes {
		if v.Notes[i].ID == id {
			return &v.Notes[i]
		}
	}
	return nil
}

func TestSaveAndLoad(t *testing.T) {
	s, root := testutil.TestVault(t)
	n := note("n1", models.FolderAll, "# Hello\n\nbody #tag")
	n.Tags = []string{"tag"}
	if err := s.SaveNote(n); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if !testutil.FileExists(t, root, "n1.md") {
		t.Fatal("note not written at vault root")
	}
	if testutil.FileExists(t, root, "all") {
		t.Fatal("folder all must never exist on disk")
	}

	v := load(t, s)
	got := find(v, "n1")
	if got == nil {
		t.Fatalf("note missing from %+v", v.Notes)
	}
	if got.FolderID != models.FolderAll || got.Content != n.Content || got.Title != n.Title {
		t.Errorf("loaded = %+v", got)
	}
	if !got.CreatedAt.Equal(t0) || !got.ModifiedAt.Equal(t0) {
		t.Errorf("timestamps = %v %v", got.CreatedAt, got.ModifiedAt)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "tag" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestLoad_FoldersAndSkips(t *testing.T) {
	s, root := testutil.TestVault(t)
	testutil.WriteFile(t, root, "plain.md", "# no front matter\n")
	testutil.WriteFile(t, root, "broken.md", "---\n: : {{\n---\nbody")
	testutil.WriteFile(t, root, "work/w.md", "---\nid: w\ntitle: W\n---\nwork note")
	testutil.WriteFile(t, root, "assets/cat.png", "png")
	testutil.WriteFile(t, root, "all/x.md", "---\nid: x\n---\n")
	testutil.WriteFile(t, root, "trash/gone.md", "---\nid: gone\npreviousFolderId: work\n---\n")
	testutil.WriteFile(t, root, "my-note.md", "---\ntags: []\n---\nfallbacks")

	v := load(t, s)
	var ids []string
	for _, f := range v.Folders {
		ids = append(ids, f.ID)
	}
	if strings.Join(ids, ",") != "all,trash,work" {
		t.Errorf("folders = %v", ids)
	}
	if len(v.Notes) != 3 {
		t.Fatalf("notes = %+v", v.Notes)
	}
	if n := find(v, "w"); n == nil || n.FolderID != "work" {
		t.Errorf("work note = %+v", n)
	}
	if n := find(v, "gone"); n == nil || n.FolderID != models.FolderTrash || n.PreviousFolderID != "work" {
		t.Errorf("trash note = %+v", n)
	}
	if n := find(v, "my-note"); n == nil || n.Title != "my note" {
		t.Errorf("fallback note = %+v", n)
	}
}

func TestOpen_MissingVault(t *testing.T) {
	_, err := vault.Open(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, apperr.ErrVaultMissing) {
		t.Fatalf("err = %v, want ErrVaultMissing", err)
	}
	var opErr *apperr.OpError
	if !errors.As(err, &opErr) || opErr.Path == "" {
		t.Errorf("err should carry the path: %#v", err)
	}
}

func TestLoad_VaultRemoved(t *testing.T) {
	s, root := testutil.TestVault(t)
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); !errors.Is(err, apperr.ErrVaultMissing) {
		t.Errorf("err = %v, want ErrVaultMissing", err)
	}
}

func TestSaveNote_MoveToTrash(t *testing.T) {
	s, root := testutil.TestVault(t)
	n := note("m1", "work", "content")
	if err := s.SaveNote(n); err != nil {
		t.Fatal(err)
	}

	n.PreviousFolderID = "work"
	n.FolderID = models.FolderTrash
	if err := s.SaveNote(n); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if !testutil.FileExists(t, root, "trash/m1.md") {
		t.Error("note missing from trash")
	}
	if testutil.FileExists(t, root, "work/m1.md") {
		t.Error("old copy still in work")
	}
	v := load(t, s)
	if got := find(v, "m1"); got == nil || got.FolderID != models.FolderTrash {
		t.Errorf("loaded = %+v", got)
	}
}

func TestSaveNote_InterruptedMoveKeepsData(t *testing.T) {
	s, fp, root := testutil.TestVaultWithFaults(t)
	n := note("m2", "work", "precious")
	if err := s.SaveNote(n); err != nil {
		t.Fatal(err)
	}

	fp.FailOn("Delete", errors.New("crash before delete"))
	n.PreviousFolderID = "work"
	n.FolderID = models.FolderTrash
	if err := s.SaveNote(n); err == nil {
		t.Fatal("expected error from interrupted move")
	}
	if !testutil.FileExists(t, root, "trash/m2.md") || !testutil.FileExists(t, root, "work/m2.md") {
		t.Fatal("interrupted move must leave the new copy and the old one")
	}

	fp.FailOn("Delete", nil)
	v := load(t, s)
	count := 0
	for _, x := range v.Notes {
		if x.ID == "m2" {
			count++
			if x.FolderID != models.FolderTrash || x.Content != "precious" {
				t.Errorf("kept copy = %+v", x)
			}
		}
	}
	if count != 1 {
		t.Errorf("loaded %d copies, want 1", count)
	}

	// The next save of the trashed note cleans up the duplicate.
	if err := s.SaveNote(n); err != nil {
		t.Fatal(err)
	}
	if testutil.FileExists(t, root, "work/m2.md") {
		t.Error("duplicate not cleaned up")
	}
}

func TestSaveNote_WriteFailureLeavesOldCopy(t *testing.T) {
	s, fp, root := testutil.TestVaultWithFaults(t)
	n := note("m3", "work", "x")
	if err := s.SaveNote(n); err != nil {
		t.Fatal(err)
	}
	fp.FailOn("Write", errors.New("disk full"))
	n.PreviousFolderID, n.FolderID = "work", models.FolderTrash
	err := s.SaveNote(n)
	var opErr *apperr.OpError
	if !errors.As(err, &opErr) || opErr.ID != "m3" || opErr.Op != "save" {
		t.Fatalf("err = %#v", err)
	}
	if !testutil.FileExists(t, root, "work/m3.md") {
		t.Error("old copy deleted although the write failed")
	}
}

func TestMoveNote(t *testing.T) {
	s, root := testutil.TestVault(t)
	n := note("mv", models.FolderAll, "x")
	_ = s.SaveNote(n)
	n.FolderID = "projects"
	if err := s.MoveNote(n, models.FolderAll); err != nil {
		t.Fatalf("MoveNote: %v", err)
	}
	if !testutil.FileExists(t, root, "projects/mv.md") || testutil.FileExists(t, root, "mv.md") {
		t.Error("move did not relocate the file")
	}
	data, _ := os.ReadFile(filepath.Join(root, "projects", "mv.md"))
	if strings.Contains(string(data), "previousFolderId") {
		t.Errorf("moved note should not record a previous folder:\n%s", data)
	}
}

func TestMoveNote_InterruptedKeepsDestination(t *testing.T) {
	s, fp, root := testutil.TestVaultWithFaults(t)
	n := note("mv2", models.FolderAll, "moving")
	if err := s.SaveNote(n); err != nil {
		t.Fatal(err)
	}

	fp.FailOn("Delete", errors.New("crash before delete"))
	n.FolderID = "projects"
	if err := s.MoveNote(n, models.FolderAll); err == nil {
		t.Fatal("expected error from interrupted move")
	}
	if !testutil.FileExists(t, root, "mv2.md") || !testutil.FileExists(t, root, "projects/mv2.md") {
		t.Fatal("interrupted move must leave both copies")
	}

	fp.FailOn("Delete", nil)
	v := load(t, s)
	count := 0
	for _, x := range v.Notes {
		if x.ID != "mv2" {
			continue
		}
		count++
		if x.FolderID != "projects" || x.PreviousFolderID != "" {
			t.Errorf("kept copy = %+v", x)
		}
	}
	if count != 1 {
		t.Errorf("loaded %d copies, want 1", count)
	}
	if testutil.FileExists(t, root, "mv2.md") {
		t.Error("source copy of the interrupted move left behind")
	}
}

func TestDeleteFolder(t *testing.T) {
	s, root := testutil.TestVault(t)
	if _, err := s.CreateFolder("work"); err != nil {
		t.Fatal(err)
	}
	a, b := note("a", "work", "alpha"), note("b", "work", "beta")
	_ = s.SaveNote(a)
	_ = s.SaveNote(b)

	moved, err := s.DeleteFolder("work", []models.Note{a, b, note("ghost", "work", "")})
	if err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if len(moved) != 2 {
		t.Errorf("moved = %v", moved)
	}
	if testutil.FileExists(t, root, "work") {
		t.Error("folder directory still exists")
	}

	v := load(t, s)
	for _, want := range []models.Note{a, b} {
		got := find(v, want.ID)
		if got == nil || got.FolderID != models.FolderTrash || got.Content != want.Content {
			t.Errorf("note %s = %+v", want.ID, got)
			continue
		}
		if got.PreviousFolderID != "work" {
			t.Errorf("note %s previousFolderId = %q", want.ID, got.PreviousFolderID)
		}
	}
	for _, n := range v.Notes {
		if n.FolderID == "work" {
			t.Errorf("note %s still in work", n.ID)
		}
	}
	for _, f := range v.Folders {
		if f.ID == "work" {
			t.Error("folder still loaded")
		}
	}
}

func TestDeleteFolder_StaleListIsConflict(t *testing.T) {
	s, root := testutil.TestVault(t)
	_, _ = s.CreateFolder("work")
	known := note("known", "work", "")
	_ = s.SaveNote(known)
	_ = s.SaveNote(note("unknown", "work", ""))

	moved, err := s.DeleteFolder("work", []models.Note{known})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(moved) != 1 || moved[0] != "known" {
		t.Errorf("moved = %v", moved)
	}
	if !testutil.FileExists(t, root, "work/unknown.md") {
		t.Error("leftover note must stay in place")
	}
}

func TestDeleteFolder_SystemFolder(t *testing.T) {
	s, _ := testutil.TestVault(t)
	for _, id := range []string{models.FolderAll, models.FolderTrash} {
		if _, err := s.DeleteFolder(id, nil); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("DeleteFolder(%q) err = %v", id, err)
		}
	}
}

func TestCreateFolder_ReservedRejectedBeforeIO(t *testing.T) {
	s, fp, _ := testutil.TestVaultWithFaults(t)
	for _, name := range []string{"Assets", "assets", "ASSETS", "Trash", "ALL", "", "  ", "a/b", "..", ".hidden"} {
		fp.Reset()
		_, err := s.CreateFolder(name)
		if !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("CreateFolder(%q) err = %v, want ErrInvalidName", name, err)
		}
		if calls := fp.Calls(); len(calls) != 0 {
			t.Errorf("CreateFolder(%q) touched the file system: %v", name, calls)
		}
	}
}

func TestCreateFolder(t *testing.T) {
	s, root := testutil.TestVault(t)
	f, err := s.CreateFolder(" Ideas ")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if f.ID != "Ideas" || f.Name != "Ideas" || f.System || f.Color != models.DefaultFolderColor {
		t.Errorf("folder = %+v", f)
	}
	if !testutil.FileExists(t, root, "Ideas") {
		t.Error("directory not created")
	}
	if _, err := s.CreateFolder("Ideas"); !errors.Is(err, fs.ErrExist) {
		t.Errorf("duplicate err = %v, want ErrExist", err)
	}
}

func TestRenameFolder(t *testing.T) {
	s, root := testutil.TestVault(t)
	_, _ = s.CreateFolder("old")
	_ = s.SaveNote(note("r", "old", "x"))
	_, _ = s.CreateFolder("taken")

	if _, err := s.RenameFolder("old", "taken"); !errors.Is(err, fs.ErrExist) {
		t.Errorf("rename onto existing err = %v", err)
	}
	if _, err := s.RenameFolder("old", "assets"); !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("rename to reserved err = %v", err)
	}
	if _, err := s.RenameFolder(models.FolderTrash, "bin"); !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("rename system folder err = %v", err)
	}
	f, err := s.RenameFolder("old", "new")
	if err != nil {
		t.Fatalf("RenameFolder: %v", err)
	}
	if f.ID != "new" || !testutil.FileExists(t, root, "new/r.md") || testutil.FileExists(t, root, "old") {
		t.Errorf("rename result %+v", f)
	}
}

func TestRenameFolder_RetargetsTrash(t *testing.T) {
	s, _ := testutil.TestVault(t)
	_, _ = s.CreateFolder("old")
	_, _ = s.CreateFolder("keep")
	gone := note("t1", models.FolderTrash, "x")
	gone.PreviousFolderID = "old"
	other := note("t2", models.FolderTrash, "y")
	other.PreviousFolderID = "keep"
	for _, n := range []models.Note{gone, other} {
		if err := s.SaveNote(n); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := s.RenameFolder("old", "new"); err != nil {
		t.Fatalf("RenameFolder: %v", err)
	}
	v := load(t, s)
	if got := find(v, "t1"); got == nil || got.PreviousFolderID != "new" {
		t.Errorf("trashed note from renamed folder = %+v", got)
	}
	if got := find(v, "t2"); got == nil || got.PreviousFolderID != "keep" {
		t.Errorf("unrelated trashed note = %+v", got)
	}
}

func TestDeleteNotePermanently(t *testing.T) {
	s, root := testutil.TestVault(t)
	res, err := s.DeleteNotePermanently("missing")
	if err != nil {
		t.Fatalf("missing note should not be an error: %v", err)
	}
	if res.Success || res.Message == "" {
		t.Errorf("result = %+v", res)
	}

	_ = s.SaveNote(note("d", models.FolderTrash, ""))
	res, err = s.DeleteNotePermanently("d")
	if err != nil || !res.Success {
		t.Fatalf("DeleteNotePermanently = %+v, %v", res, err)
	}
	if testutil.FileExists(t, root, "trash/d.md") {
		t.Error("file still in trash")
	}
}

func TestRecoverNote(t *testing.T) {
	s, root := testutil.TestVault(t)
	if err := s.RecoverNote("nothing", models.FolderAll); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	n := note("rc", models.FolderTrash, "back")
	n.PreviousFolderID = "projects"
	_ = s.SaveNote(n)
	if err := s.RecoverNote("rc", "projects"); err != nil {
		t.Fatalf("RecoverNote: %v", err)
	}
	if !testutil.FileExists(t, root, "projects/rc.md") || testutil.FileExists(t, root, "trash/rc.md") {
		t.Fatal("note not moved out of trash")
	}
	got := find(load(t, s), "rc")
	if got == nil || got.FolderID != "projects" || got.PreviousFolderID != "" {
		t.Errorf("recovered = %+v", got)
	}

	_ = s.SaveNote(note("rc2", models.FolderTrash, ""))
	if err := s.RecoverNote("rc2", models.FolderAll); err != nil {
		t.Fatal(err)
	}
	if !testutil.FileExists(t, root, "rc2.md") {
		t.Error("recover to all should land in the root")
	}
	if err := s.RecoverNote("rc2", models.FolderTrash); !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("recover into trash err = %v", err)
	}
}

func TestSaveAsset(t *testing.T) {
	clock := testutil.FixedClock()
	s, root := testutil.TestVault(t, vault.WithClock(clock))

	rel, err := s.SaveAsset([]byte("png"), "/home/me/My Cat.PNG")
	if err != nil {
		t.Fatalf("SaveAsset: %v", err)
	}
	want := "assets/My-Cat_1705314600000.png"
	if rel != want {
		t.Errorf("rel = %q, want %q", rel, want)
	}
	again, err := s.SaveAsset([]byte("png2"), "My Cat.PNG")
	if err != nil {
		t.Fatal(err)
	}
	if again == rel {
		t.Error("second asset overwrote the first")
	}
	if !testutil.FileExists(t, root, rel) || !testutil.FileExists(t, root, again) {
		t.Error("asset files missing")
	}

	u, err := s.ResolveAssetPath(rel)
	if err != nil {
		t.Fatalf("ResolveAssetPath: %v", err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "My-Cat_1705314600000.png") {
		t.Errorf("url = %q", u)
	}
	if _, err := s.ResolveAssetPath("assets/none.png"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing asset err = %v", err)
	}
	if _, err := s.ResolveAssetPath("../../etc/passwd"); err == nil {
		t.Error("traversal should fail")
	}
}

func TestHeaderIDMismatchUsesFileName(t *testing.T) {
	s, root := testutil.TestVault(t)
	testutil.WriteFile(t, root, "copy.md", "---\nid: original\ntitle: T\n---\nbody")
	v := load(t, s)
	if find(v, "copy") == nil || find(v, "original") != nil {
		t.Errorf("notes = %+v", v.Notes)
	}
}

func TestEnsureLayout(t *testing.T) {
	s, root := testutil.TestVault(t)
	if err := s.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !testutil.FileExists(t, root, "trash") {
		t.Error("trash not created")
	}
}
