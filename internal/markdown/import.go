package markdown

import (
	"strings"

	"github.com/starford/anota/internal/document"
)

// FromMarkdown parses markdown into a document. Every line becomes a block
// (an empty line is an empty paragraph); consecutive list items of the same
// kind form one list and consecutive quote lines one quote. Constructs the
// registry does not know degrade to paragraphs.
func FromMarkdown(md string) *document.Document {
	doc := &document.Document{}
	if md == "" {
		return doc
	}
	lines := strings.Split(md, "\n")
	for i := 0; i < len(lines); i++ {
		if b, end, ok := matchMultiline(lines, i); ok {
			doc.Blocks = append(doc.Blocks, b)
			i = end
			continue
		}
		appendLine(doc, matchLine(lines[i]))
	}
	return doc
}

// PlainText flattens markdown to its text content.
func PlainText(md string) string {
	return FromMarkdown(md).TextContent()
}

// matchMultiline reports a fenced block opening at lines[i] and the index
// of its closing fence, which must be as long as the opening one. An
// unclosed fence is not a block.
func matchMultiline(lines []string, i int) (document.Block, int, bool) {
	for _, t := range transformers {
		if t.Type != Multiline {
			continue
		}
		m := t.Line.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			if t.End.MatchString(lines[j]) && lines[j] == m[1] {
				return document.CodeBlock(m[2], strings.Join(lines[i+1:j], "\n")), j, true
			}
		}
	}
	return document.Block{}, i, false
}

func matchLine(line string) lineMatch {
	for _, t := range elementRules {
		if m := t.Line.FindStringSubmatch(line); m != nil {
			return t.match(m)
		}
	}
	return lineMatch{kind: document.BlockParagraph, text: line}
}

func appendLine(doc *document.Document, lm lineMatch) {
	inlines := parseInline(lm.text)

	var last *document.Block
	if n := len(doc.Blocks); n > 0 {
		last = &doc.Blocks[n-1]
	}

	switch {
	case lm.kind.IsList():
		item := document.ListItem{Indent: lm.indent, Value: lm.value, Checked: lm.checked, Inlines: inlines}
		if last != nil && last.Kind == lm.kind {
			last.Items = append(last.Items, item)
			return
		}
		doc.Blocks = append(doc.Blocks, document.Block{Kind: lm.kind, Items: []document.ListItem{item}})
	case lm.kind == document.BlockQuote && last != nil && last.Kind == document.BlockQuote:
		last.Inlines = append(append(last.Inlines, document.LineBreak()), inlines...)
	default:
		doc.Blocks = append(doc.Blocks, document.Block{Kind: lm.kind, Level: lm.level, Inlines: inlines})
	}
}

// parseInline parses one line of inline markdown. Backslash escapes are
// hidden from the rules while parsing and restored in the result.
func parseInline(s string) []document.Inline {
	return restore(parseSpans(protect(s)))
}

// parseSpans splits s on inline code, images and links first, then parses
// text formats in the plain stretches between them.
func parseSpans(s string) []document.Inline {
	var out []document.Inline
	for s != "" {
		t, loc := leftmost(atomicRules, s)
		if t == nil {
			return appendInlines(out, parseFormats(s, 0)...)
		}
		out = appendInlines(out, parseFormats(s[:loc[0]], 0)...)
		m := submatches(s, loc)
		if t.Type == TextFormat {
			out = appendInlines(out, document.Styled(m[1], t.Format))
		} else {
			out = append(out, t.build(m))
		}
		s = s[loc[1]:]
	}
	return out
}

// escapeBase maps an escaped ASCII punctuation byte to a private use rune
// that no rule pattern matches.
const escapeBase = 0xE000

func isASCIIPunct(c byte) bool {
	return c < 0x80 && strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}

func protect(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isASCIIPunct(s[i+1]) {
			sb.WriteRune(rune(escapeBase + int(s[i+1])))
			i++
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// unprotect turns placeholders back into characters, keeping the
// backslash when raw is set (link targets and image sources).
func unprotect(s string, raw bool) string {
	if !strings.ContainsFunc(s, isPlaceholder) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if !isPlaceholder(r) {
			sb.WriteRune(r)
			continue
		}
		if raw {
			sb.WriteByte('\\')
		}
		sb.WriteByte(byte(r - escapeBase))
	}
	return sb.String()
}

func isPlaceholder(r rune) bool { return r >= escapeBase && r < escapeBase+0x80 }

func restore(ins []document.Inline) []document.Inline {
	for i := range ins {
		switch ins[i].Kind {
		case document.InlineText:
			ins[i].Text = unprotect(ins[i].Text, false)
		case document.InlineLink:
			ins[i].URL = unprotect(ins[i].URL, true)
			ins[i].Children = restore(ins[i].Children)
		case document.InlineImage:
			ins[i].Src = unprotect(ins[i].Src, true)
			ins[i].Alt = unprotect(ins[i].Alt, false)
		}
	}
	return ins
}

func parseFormats(s string, f document.Format) []document.Inline {
	var out []document.Inline
	for s != "" {
		t, loc := leftmost(formatRules, s)
		if t == nil {
			return appendInlines(out, document.Styled(s, f))
		}
		out = appendInlines(out, document.Styled(s[:loc[0]], f))
		out = appendInlines(out, parseFormats(s[loc[2]:loc[3]], f|t.Format)...)
		s = s[loc[1]:]
	}
	return out
}

// leftmost returns the rule whose pattern matches earliest in s. Ties go to
// the rule listed first.
func leftmost(rules []*Transformer, s string) (*Transformer, []int) {
	var (
		best *Transformer
		loc  []int
	)
	for _, t := range rules {
		l := t.Pattern.FindStringSubmatchIndex(s)
		if l == nil {
			continue
		}
		if best == nil || l[0] < loc[0] {
			best, loc = t, l
		}
	}
	return best, loc
}

func submatches(s string, loc []int) []string {
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return m
}

// appendInlines appends ins to out, dropping empty text and merging
// neighbouring text spans that share a format.
func appendInlines(out []document.Inline, ins ...document.Inline) []document.Inline {
	for _, in := range ins {
		if in.Kind == document.InlineText {
			if in.Text == "" {
				continue
			}
			if n := len(out); n > 0 && out[n-1].Kind == document.InlineText && out[n-1].Format == in.Format {
				out[n-1].Text += in.Text
				continue
			}
		}
		out = append(out, in)
	}
	return out
}

// MatchShortcut applies the text match rules triggered by the last
// character of text, as when a user has just typed it. It returns the text
// before the match and the node that replaces the match.
func MatchShortcut(text string) (string, document.Inline, bool) {
	if text == "" {
		return text, document.Inline{}, false
	}
	last := text[len(text)-1:]
	for _, t := range matchRules {
		if t.Trigger != last || t.Shortcut == nil {
			continue
		}
		loc := t.Shortcut.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		return text[:loc[0]], t.build(submatches(text, loc)), true
	}
	return text, document.Inline{}, false
}
