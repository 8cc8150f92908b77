// Package textutil derives titles, tags and previews from note content.
// Every function is pure.
package textutil

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/starford/anota/internal/markdown"
)

const (
	DefaultTitle     = "Untitled Note"
	DefaultMaxLength = 80

	ImagePlaceholder = "[Image]"
	EmptyPreview     = "Empty Note"
	ellipsis         = "..."
)

var (
	tagRe = regexp.MustCompile(`#([\p{L}\p{N}_-]+)`)

	imageRe     = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	headerRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	checkboxRe  = regexp.MustCompile(`(?m)^\s*[-*+]\s+\[[ xX]\]\s+`)
	listRe      = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	orderedRe   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	codeSpanRe  = regexp.MustCompile("`([^`]+)`")
	emphasisRe  = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	quoteRe     = regexp.MustCompile(`(?m)^>\s?`)
	fenceRe     = regexp.MustCompile("(?m)^```.*$")
	whitespace  = regexp.MustCompile(`\s+`)
	trailWordRe = regexp.MustCompile(`\s+\S*$`)
)

// ExtractTags returns the lowercased, deduplicated, sorted #tags of plain.
// Pass plain text, not markdown, so heading markers are not mistaken for
// tags.
func ExtractTags(plain string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, m := range tagRe.FindAllStringSubmatch(plain, -1) {
		tag := strings.ToLower(m[1])
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// ExtractTitle strips markdown syntax from md and returns its first
// non-empty line, truncated to maxLen runes. It returns "" when md has no
// text; callers substitute DefaultTitle.
func ExtractTitle(md string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	s := imageRe.ReplaceAllString(md, "")
	s = stripSyntax(s)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
		if line != "" {
			return truncate(line, maxLen)
		}
	}
	return ""
}

// CreateNotePreview renders md as a single line of plain text for note
// lists. Images show as [Image].
func CreateNotePreview(md string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	s := imageRe.ReplaceAllString(md, ImagePlaceholder)
	s = strings.TrimSpace(whitespace.ReplaceAllString(markdown.PlainText(s), " "))
	if s == "" {
		if strings.Contains(md, "![") {
			return ImagePlaceholder
		}
		return EmptyPreview
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	cut := string([]rune(s)[:maxLen])
	if trimmed := trailWordRe.ReplaceAllString(cut, ""); trimmed != "" {
		cut = trimmed
	}
	return strings.TrimSpace(cut) + ellipsis
}

func stripSyntax(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = headerRe.ReplaceAllString(s, "")
	s = quoteRe.ReplaceAllString(s, "")
	s = checkboxRe.ReplaceAllString(s, "")
	s = listRe.ReplaceAllString(s, "")
	s = orderedRe.ReplaceAllString(s, "")
	s = codeSpanRe.ReplaceAllString(s, "$1")
	s = emphasisRe.ReplaceAllString(s, "$1")
	return s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(r[:maxLen])) + ellipsis
}
