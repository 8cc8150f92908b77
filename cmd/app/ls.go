package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/anota/internal/migrate"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/textutil"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff79c6"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb86c"))
)

const previewLen = 60

func renderListing(w io.Writer, folders []models.Folder, notes []models.Note) {
	fmt.Fprintln(w, headerStyle.Render("Folders"))
	for _, f := range folders {
		line := "  " + f.Name
		if f.ID != f.Name {
			line += " " + dimStyle.Render("("+f.ID+")")
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Notes (%d)", len(notes))))
	for _, n := range notes {
		line := fmt.Sprintf("  %s  %s", dimStyle.Render(n.ModifiedAt.Local().Format(time.DateTime)), n.Title)
		if len(n.Tags) > 0 {
			tags := make([]string, len(n.Tags))
			for i, t := range n.Tags {
				tags[i] = "#" + t
			}
			line += " " + tagStyle.Render(strings.Join(tags, " "))
		}
		fmt.Fprintln(w, line)
		if p := textutil.CreateNotePreview(n.Content, previewLen); p != "" {
			fmt.Fprintln(w, "    "+dimStyle.Render(p))
		}
	}
}

func renderReport(w io.Writer, r migrate.Report) {
	fmt.Fprintln(w, headerStyle.Render("Migrated"))
	fmt.Fprintf(w, "  folders: %s\n", strings.Join(r.Folders, ", "))
	fmt.Fprintf(w, "  notes:   %d\n", r.Notes)
	if len(r.Skipped) == 0 {
		return
	}
	ids := make([]string, 0, len(r.Skipped))
	for id := range r.Skipped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Skipped (%d)", len(ids))))
	for _, id := range ids {
		fmt.Fprintf(w, "  %s: %s\n", id, r.Skipped[id])
	}
}
