// Package export converts notes to standalone markdown or HTML files and
// imports plain markdown files as notes.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/anota/internal/frontmatter"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/textutil"
)

// Formats accepted by Exporter.Export.
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
)

// AssetResolver maps a vault-relative asset path to the URL used in HTML.
type AssetResolver func(rel string) string

// Exporter renders notes.
type Exporter struct {
	md goldmark.Markdown
}

// New returns an Exporter. Image sources under assets/ are passed through
// resolve; a nil resolve leaves them unchanged.
func New(resolve AssetResolver) *Exporter {
	return &Exporter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithExtensions(&vaultLinks{resolve: resolve}),
			// Underline is stored as <u> in note markdown.
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

// Export renders n in format and returns the file body, its content type
// and a suggested file name.
func (e *Exporter) Export(n models.Note, format string) ([]byte, string, string, error) {
	switch format {
	case "", FormatMarkdown:
		return Markdown(n), "text/markdown; charset=utf-8", FileName(n, FormatMarkdown), nil
	case FormatHTML:
		out, err := e.HTML(n)
		return out, "text/html; charset=utf-8", FileName(n, FormatHTML), err
	default:
		return nil, "", "", fmt.Errorf("export: unknown format %q", format)
	}
}

// Markdown returns the note body without its front matter.
func Markdown(n models.Note) []byte {
	return []byte(n.Content)
}

// HTML renders the note as a complete HTML document.
func (e *Exporter) HTML(n models.Note) ([]byte, error) {
	body, err := e.Fragment(n.Content)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(n.Title))
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

// Fragment renders markdown to an HTML fragment.
func (e *Exporter) Fragment(md string) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("export: render: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName suggests a file name for an exported note.
func FileName(n models.Note, format string) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(n.Title))
	if base == "" {
		base = n.ID
	}
	return base + "." + format
}

// Import turns a markdown file into note content and a title. A front
// matter header, if present, is dropped in favour of the body.
func Import(name string, data []byte, titleMax int) (title, content string) {
	content = string(data)
	if _, body, err := frontmatter.Decode(data); err == nil {
		content = body
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	title = textutil.ExtractTitle(content, titleMax)
	if title == "" {
		title = frontmatter.Humanize(frontmatter.Stem(name))
	}
	return title, content
}

type vaultLinks struct {
	resolve AssetResolver
}

func (e *vaultLinks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&vaultLinksTransformer{resolve: e.resolve}, 100),
	))
}

// vaultLinksTransformer points vault images at resolvable URLs and opens
// external links in a new tab.
type vaultLinksTransformer struct {
	resolve AssetResolver
}

func (t *vaultLinksTransformer) Transform(node *ast.Document, reader text.Reader, _ parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Image:
			dest := string(v.Destination)
			if t.resolve != nil && strings.HasPrefix(dest, models.AssetsDir+"/") {
				v.Destination = []byte(t.resolve(dest))
			}
		case *ast.Link:
			if isExternal(v.Destination) {
				v.SetAttributeString("target", []byte("_blank"))
				v.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		case *ast.AutoLink:
			if v.AutoLinkType == ast.AutoLinkURL && isExternal(v.URL(reader.Source())) {
				v.SetAttributeString("target", []byte("_blank"))
				v.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		}
		return ast.WalkContinue, nil
	})
}

func isExternal(dest []byte) bool {
	s := strings.ToLower(strings.TrimSpace(string(dest)))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "mailto:")
}
