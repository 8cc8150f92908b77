package markdown

import (
	"strings"
	"unicode"

	"github.com/starford/anota/internal/document"
)

// ToMarkdown renders doc as canonical markdown: one line per block, list
// items one per line, blocks joined by a single newline.
func ToMarkdown(doc *document.Document) string {
	if doc == nil {
		return ""
	}
	lines := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		lines = append(lines, exportBlock(b))
	}
	return strings.Join(lines, "\n")
}

func exportBlock(b document.Block) string {
	t := blockTransformer(b.Kind)
	switch {
	case b.Kind == document.BlockCode:
		fence := codeFence(b.Code)
		return fence + b.Language + "\n" + b.Code + "\n" + fence
	case b.Kind.IsList():
		lines := make([]string, len(b.Items))
		for i, it := range b.Items {
			lines[i] = exportLine(t.prefix(b, it), it.Inlines)
		}
		return strings.Join(lines, "\n")
	case b.Kind == document.BlockQuote:
		segs := splitLineBreaks(b.Inlines)
		lines := make([]string, len(segs))
		for i, seg := range segs {
			lines[i] = exportLine(t.prefix(b, document.ListItem{}), seg)
		}
		return strings.Join(lines, "\n")
	case t != nil:
		return exportLine(t.prefix(b, document.ListItem{}), b.Inlines)
	default:
		return exportLine("", b.Inlines)
	}
}

// exportLine renders ins after prefix. Lines that start without a prefix
// are escaped so they do not read back as a different block.
func exportLine(prefix string, ins []document.Inline) string {
	lines := strings.Split(exportInlines(ins), "\n")
	for i, l := range lines {
		if i == 0 && prefix != "" {
			lines[i] = prefix + l
			continue
		}
		lines[i] = escapeLineStart(l)
	}
	return strings.Join(lines, "\n")
}

// escapeLineStart backslash-escapes the marker of a line that an element
// rule would match. For ordered list numbers the dot is escaped.
func escapeLineStart(line string) string {
	matched := false
	for _, t := range elementRules {
		if t.Line.MatchString(line) {
			matched = true
			break
		}
	}
	if !matched {
		return line
	}
	i := len(line) - len(strings.TrimLeft(line, " "))
	j := i
	for j < len(line) && line[j] >= '0' && line[j] <= '9' {
		j++
	}
	return line[:j] + `\` + line[j:]
}

// codeFence returns a backtick fence longer than any backtick run in code.
func codeFence(code string) string {
	longest, run := 0, 0
	for i := 0; i < len(code); i++ {
		if code[i] != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return strings.Repeat("`", max(len(CodeBlock.Trigger), longest+1))
}

func splitLineBreaks(ins []document.Inline) [][]document.Inline {
	segs := [][]document.Inline{nil}
	for _, in := range ins {
		if in.Kind == document.InlineLineBreak {
			segs = append(segs, nil)
			continue
		}
		segs[len(segs)-1] = append(segs[len(segs)-1], in)
	}
	return segs
}

func exportInlines(ins []document.Inline) string {
	return exportSpans(ins, codeSpecials)
}

// exportSpans renders ins, escaping code spans with codeEsc. Code wins
// over every other format, so spans are normalized before merging.
func exportSpans(ins []document.Inline, codeEsc string) string {
	norm := make([]document.Inline, len(ins))
	for i, in := range ins {
		if in.Kind == document.InlineText && in.Format.Has(document.Code) {
			in.Format = document.Code
		}
		norm[i] = in
	}
	var sb strings.Builder
	for _, in := range appendInlines(nil, norm...) {
		switch in.Kind {
		case document.InlineText:
			sb.WriteString(exportText(in.Text, in.Format, codeEsc))
		case document.InlineLineBreak:
			sb.WriteByte('\n')
		default:
			if t := inlineTransformer(in.Kind); t != nil {
				sb.WriteString(t.export(in))
			}
		}
	}
	return sb.String()
}

// Characters escaped in text so they are not read back as markup.
const (
	textSpecials = "\\*=~`[]!<"
	codeSpecials = "\\`"
	altSpecials  = "\\[]"

	// Link text cannot hold a bare bracket, not even in a code span.
	linkCodeSpecials = "\\`[]"
)

func escape(s, specials string) string {
	if !strings.ContainsAny(s, specials) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specials, s[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// exportText wraps s in the markers of f. Surrounding whitespace stays
// outside the markers; inline code ignores every other format.
func exportText(s string, f document.Format, codeEsc string) string {
	if s == "" {
		return s
	}
	if f.Has(document.Code) {
		return InlineCode.Open + escape(s, codeEsc) + InlineCode.Close
	}
	s = escape(s, textSpecials)
	if f == 0 {
		return s
	}
	core := strings.TrimFunc(s, unicode.IsSpace)
	if core == "" {
		return s
	}
	lead := s[:len(s)-len(strings.TrimLeftFunc(s, unicode.IsSpace))]
	trail := s[len(strings.TrimRightFunc(s, unicode.IsSpace)):]

	rest := f
	for _, t := range exportWrap {
		if rest.Has(t.Format) {
			core = t.Open + core + t.Close
			rest &^= t.Format
		}
	}
	return lead + core + trail
}
