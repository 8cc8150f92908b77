package export

import (
	"strings"
	"testing"

	"github.com/starford/anota/internal/models"
)

func TestHTML_Document(t *testing.T) {
	e := New(nil)
	n := models.Note{ID: "n1", Title: "Plan <draft>", Content: "# Plan\n\n- [x] done\n- [ ] todo\n"}

	out, err := e.HTML(n)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, "<title>Plan &lt;draft&gt;</title>") {
		t.Errorf("title not escaped: %s", s)
	}
	if !strings.Contains(s, "<h1>Plan</h1>") {
		t.Errorf("missing heading: %s", s)
	}
	if !strings.Contains(s, `type="checkbox"`) {
		t.Errorf("task list not rendered: %s", s)
	}
}

func TestFragment_AssetImages(t *testing.T) {
	e := New(func(rel string) string { return "/api/assets/" + strings.TrimPrefix(rel, "assets/") })

	out, err := e.Fragment("![shot](assets/shot-1.png)\n\n![remote](https://example.com/x.png)\n")
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, `src="/api/assets/shot-1.png"`) {
		t.Errorf("asset not resolved: %s", s)
	}
	if !strings.Contains(s, `src="https://example.com/x.png"`) {
		t.Errorf("remote image rewritten: %s", s)
	}
}

func TestFragment_ExternalLinks(t *testing.T) {
	e := New(nil)

	out, err := e.Fragment("[site](https://example.com) and [local](other.md) and https://go.dev\n")
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, `<a href="https://example.com" target="_blank" rel="noopener noreferrer">site</a>`) {
		t.Errorf("external link attrs missing: %s", s)
	}
	if !strings.Contains(s, `<a href="other.md">local</a>`) {
		t.Errorf("local link changed: %s", s)
	}
	if strings.Count(s, `target="_blank"`) != 2 {
		t.Errorf("autolink attrs missing: %s", s)
	}
}

func TestFragment_Underline(t *testing.T) {
	out, err := New(nil).Fragment("some <u>under</u> text\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "<u>under</u>") {
		t.Errorf("underline dropped: %s", out)
	}
}

func TestExport_Formats(t *testing.T) {
	e := New(nil)
	n := models.Note{ID: "n1", Title: "a/b", Content: "hello\n"}

	body, ctype, name, err := e.Export(n, FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "hello\n" || !strings.HasPrefix(ctype, "text/markdown") || name != "a-b.md" {
		t.Errorf("md export = %q %q %q", body, ctype, name)
	}

	_, ctype, name, err = e.Export(n, FormatHTML)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ctype, "text/html") || name != "a-b.html" {
		t.Errorf("html export = %q %q", ctype, name)
	}

	if _, _, _, err := e.Export(n, "pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFileName_EmptyTitle(t *testing.T) {
	if got := FileName(models.Note{ID: "n9"}, FormatMarkdown); got != "n9.md" {
		t.Errorf("FileName = %q", got)
	}
}

func TestImport(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		data      string
		wantTitle string
		wantBody  string
	}{
		{"plain", "x.md", "# Groceries\r\n- milk\r\n", "Groceries", "# Groceries\n- milk\n"},
		{"front matter", "x.md", "---\nid: a\ntitle: Old\n---\nFresh start\n", "Fresh start", "Fresh start\n"},
		{"empty falls back to file name", "road-trip.md", "", "road trip", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := Import(tt.file, []byte(tt.data), 80)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}
