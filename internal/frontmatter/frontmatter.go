// Package frontmatter reads and writes the YAML header of note files.
//
// A note file is "---\n<yaml>\n---\n<body>". The body is stored verbatim.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTitle is written when a note has no title.
const DefaultTitle = "Untitled Note"

var (
	// ErrNoFrontMatter is returned when the file does not open with a
	// fence pair. Such files are not notes.
	ErrNoFrontMatter = errors.New("frontmatter: no front matter")
	// ErrInvalidFrontMatter is returned when the header is not valid YAML.
	ErrInvalidFrontMatter = errors.New("frontmatter: invalid yaml")
)

var fileRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n(.*)$`)

// Metadata is the header of a note file. Field order is the on-disk order.
type Metadata struct {
	ID               string   `yaml:"id"`
	Title            string   `yaml:"title"`
	Tags             []string `yaml:"tags"`
	CreatedAt        string   `yaml:"createdAt"`
	ModifiedAt       string   `yaml:"modifiedAt"`
	PreviousFolderID string   `yaml:"previousFolderId,omitempty"`
}

// Encode renders m and body as a note file.
func Encode(m Metadata, body string) []byte {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = DefaultTitle
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	// Metadata holds only strings, so encoding cannot fail.
	_ = enc.Encode(m)
	_ = enc.Close()
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes()
}

// Decode splits data into its header and body.
func Decode(data []byte) (Metadata, string, error) {
	var m Metadata
	match := fileRe.FindSubmatch(data)
	if match == nil {
		return m, "", ErrNoFrontMatter
	}
	if err := yaml.Unmarshal(match[1], &m); err != nil {
		return m, "", fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
	}
	return m, string(match[2]), nil
}

// DecodeFile is Decode with the fallbacks for a file called name: a
// missing id becomes the file stem and a missing title the humanized stem.
func DecodeFile(name string, data []byte) (Metadata, string, error) {
	m, body, err := Decode(data)
	if err != nil {
		return m, body, err
	}
	stem := Stem(name)
	if m.ID == "" {
		m.ID = stem
	}
	if m.Title == "" {
		m.Title = Humanize(stem)
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	return m, body, nil
}

// Stem returns the base name of path without its .md extension.
func Stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".md")
}

// Humanize turns a file stem into a readable title.
func Humanize(stem string) string {
	return strings.ReplaceAll(stem, "-", " ")
}
