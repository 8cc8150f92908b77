package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/anota/internal/migrate"
	"github.com/starford/anota/internal/models"
)

func TestRenderListing(t *testing.T) {
	var buf bytes.Buffer
	folders := append(models.SystemFolders(), models.Folder{ID: "work", Name: "work"})
	notes := []models.Note{
		{ID: "n1", Title: "Plan", Content: "# Plan\nship it", Tags: []string{"todo"}, ModifiedAt: time.Now()},
		{ID: "n2", Title: "Empty", ModifiedAt: time.Now()},
	}

	renderListing(&buf, folders, notes)
	out := buf.String()

	for _, want := range []string{"Folders", "work", "Notes (2)", "Plan", "#todo", "Empty"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	renderReport(&buf, migrate.Report{
		Folders: []string{"work"},
		Notes:   3,
		Skipped: map[string]string{"b": "bad", "a": "worse"},
	})
	out := buf.String()
	if !strings.Contains(out, "notes:   3") || !strings.Contains(out, "Skipped (2)") {
		t.Errorf("report:\n%s", out)
	}
	if strings.Index(out, "a: worse") > strings.Index(out, "b: bad") {
		t.Errorf("skips not sorted:\n%s", out)
	}
}

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutput(&buf, "", "x.md", []byte("body")); err != nil || buf.String() != "body" {
		t.Errorf("stdout write = %q, %v", buf.String(), err)
	}

	dir := t.TempDir()
	if err := writeOutput(nil, dir, "x.md", []byte("in dir")); err != nil {
		t.Fatal(err)
	}
	if data, err := os.ReadFile(filepath.Join(dir, "x.md")); err != nil || string(data) != "in dir" {
		t.Errorf("dir write = %q, %v", data, err)
	}

	file := filepath.Join(dir, "named.html")
	if err := writeOutput(nil, file, "x.md", []byte("named")); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(file); string(data) != "named" {
		t.Errorf("file write = %q", data)
	}
}
