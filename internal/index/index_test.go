package index

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "anota-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	v, err := db.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 1 {
		t.Errorf("schema version = %d, want 1", v)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "re.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = db.UpsertNote(NoteRow{ID: "n1", Path: "n1.md", FolderID: "all", Tags: []string{}, ModifiedAt: time.Now()}, "body")
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db.Close()
	if _, err := db.GetNote("n1"); err != nil {
		t.Errorf("row lost after reopen: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	row := NoteRow{
		ID:         "hello",
		Path:       "work/hello.md",
		Title:      "Hello World",
		FolderID:   "work",
		Tags:       []string{"go", "test"},
		ModifiedAt: now,
	}
	if err := db.UpsertNote(row, "This is a hello world note."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, err := db.GetNote("hello")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "Hello World" || got.FolderID != "work" || got.Path != "work/hello.md" {
		t.Errorf("row = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.ModifiedAt.Equal(now) {
		t.Errorf("modifiedAt = %v, want %v", got.ModifiedAt, now)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetNote("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{ID: "up", Path: "up.md", Title: "Old", FolderID: "all", Tags: []string{}, ModifiedAt: now}, "old body")
	_ = db.UpsertNote(NoteRow{ID: "up", Path: "trash/up.md", Title: "New", FolderID: "trash", Tags: []string{"new"}, ModifiedAt: now}, "new body")

	got, _ := db.GetNote("up")
	if got.Title != "New" || got.FolderID != "trash" {
		t.Errorf("row not replaced: %+v", got)
	}
	ids, _ := db.AllIDs()
	if len(ids) != 1 {
		t.Errorf("ids = %v, want one", ids)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "del", Path: "del.md", FolderID: "all", Tags: []string{}, ModifiedAt: time.Now()}, "body")

	if err := db.DeleteNote("del"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := db.GetNote("del"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted note still cached: %v", err)
	}
}

func TestDeleteByPath_IgnoresMovedNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "m", Path: "work/m.md", FolderID: "work", Tags: []string{}, ModifiedAt: time.Now()}, "body")

	id, err := db.DeleteByPath("m.md")
	if err != nil {
		t.Fatal(err)
	}
	if id != "" {
		t.Errorf("deleted %q for a path it is no longer cached under", id)
	}
	id, err = db.DeleteByPath("work/m.md")
	if err != nil || id != "m" {
		t.Errorf("DeleteByPath = %q, %v", id, err)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "s", Path: "s.md", Title: "Search Me", FolderID: "all", Tags: []string{}, ModifiedAt: time.Now()}, "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestSearch_ExcludesTrash(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "t", Path: "trash/t.md", Title: "Gone", FolderID: models.FolderTrash, Tags: []string{}, ModifiedAt: time.Now()}, "binned words")

	results, err := db.Search("binned", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("trashed note found: %+v", results)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	db := testDB(t)
	results, err := db.Search("   ", 10)
	if err != nil || len(results) != 0 {
		t.Errorf("Search(blank) = %v, %v", results, err)
	}
}

func TestRowFromNote(t *testing.T) {
	n := models.Note{
		ID:       "r1",
		Title:    "Row",
		FolderID: "work",
		Content:  "# Row\n**bold** text",
	}
	row, body := RowFromNote(n)
	if row.Path != "work/r1.md" {
		t.Errorf("path = %q", row.Path)
	}
	if row.Tags == nil {
		t.Error("tags should be an empty slice")
	}
	if body != "Row\n\nbold text" {
		t.Errorf("body = %q", body)
	}
}

func TestRebuild(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "stale", Path: "stale.md", FolderID: "all", Tags: []string{}, ModifiedAt: time.Now()}, "old")

	notes := []models.Note{
		{ID: "a", Title: "A", FolderID: models.FolderAll, Content: "alpha"},
		{ID: "b", Title: "B", FolderID: "work", Content: "beta"},
	}
	if err := Rebuild(db, notes, quietLogger()); err != nil {
		t.Fatal(err)
	}
	ids, _ := db.AllIDs()
	if len(ids) != 2 {
		t.Errorf("ids = %v, want a and b", ids)
	}
	if _, ok := ids["stale"]; ok {
		t.Error("stale entry kept")
	}
}
