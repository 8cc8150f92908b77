// Package markdown converts between document trees and canonical markdown.
//
// Conversion is driven by an ordered list of transformers. Each pairs one
// markdown token pattern with one node type. Order matters: the image rule
// runs before the link rule and the check list rule before the bullet list
// rule, otherwise the more generic pattern swallows the specific one.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/anota/internal/document"
)

// TransformerType says how a transformer participates in conversion.
type TransformerType int

const (
	// Element transformers match a whole line and produce a block.
	Element TransformerType = iota
	// Multiline transformers match a fenced run of lines.
	Multiline
	// TextFormat transformers wrap a text span in a marker pair.
	TextFormat
	// TextMatch transformers replace a pattern with an inline node.
	TextMatch
)

// Transformer is one import/export rule.
type Transformer struct {
	Name string
	Type TransformerType
	// Trigger is the token that opens (element) or closes (text match)
	// the pattern.
	Trigger string

	// Element and Multiline.
	Block  document.BlockKind
	Line   *regexp.Regexp
	End    *regexp.Regexp
	match  func(m []string) lineMatch
	prefix func(b document.Block, it document.ListItem) string

	// TextFormat. Open and Close are the marker pair.
	Format document.Format
	Open   string
	Close  string

	// TextMatch. Pattern is searched anywhere in a text run on import;
	// Shortcut is anchored at the end of the run and used when the
	// trigger is typed.
	Inline   document.InlineKind
	Pattern  *regexp.Regexp
	Shortcut *regexp.Regexp
	build    func(m []string) document.Inline
	export   func(in document.Inline) string
}

// lineMatch is the result of matching one element line.
type lineMatch struct {
	kind    document.BlockKind
	level   int
	indent  int
	value   int
	checked bool
	text    string
}

const indentUnit = "    "

func indentLevel(ws string) int { return len(ws) / len(indentUnit) }

func indentPrefix(n int) string { return strings.Repeat(indentUnit, max(n, 0)) }

var (
	Image = &Transformer{
		Name:     "image",
		Type:     TextMatch,
		Trigger:  ")",
		Inline:   document.InlineImage,
		Pattern:  regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`),
		Shortcut: regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)$`),
		build: func(m []string) document.Inline {
			return document.Image(m[2], m[1])
		},
		export: func(in document.Inline) string {
			return "![" + escape(in.Alt, altSpecials) + "](" + in.Src + ")"
		},
	}

	CheckList = &Transformer{
		Name:    "check-list",
		Type:    Element,
		Trigger: "- [",
		Block:   document.BlockCheckList,
		Line:    regexp.MustCompile(`^((?: {4})*)[-*+] \[([ xX])\] (.*)$`),
		match: func(m []string) lineMatch {
			return lineMatch{kind: document.BlockCheckList, indent: indentLevel(m[1]), checked: m[2] != " ", text: m[3]}
		},
		prefix: func(_ document.Block, it document.ListItem) string {
			if it.Checked {
				return indentPrefix(it.Indent) + "- [x] "
			}
			return indentPrefix(it.Indent) + "- [ ] "
		},
	}

	Heading = &Transformer{
		Name:    "heading",
		Type:    Element,
		Trigger: "#",
		Block:   document.BlockHeading,
		Line:    regexp.MustCompile(`^(#{1,3}) (.*)$`),
		match: func(m []string) lineMatch {
			return lineMatch{kind: document.BlockHeading, level: len(m[1]), text: m[2]}
		},
		prefix: func(b document.Block, _ document.ListItem) string {
			return strings.Repeat("#", min(max(b.Level, 1), 3)) + " "
		},
	}

	Quote = &Transformer{
		Name:    "quote",
		Type:    Element,
		Trigger: ">",
		Block:   document.BlockQuote,
		Line:    regexp.MustCompile(`^> ?(.*)$`),
		match: func(m []string) lineMatch {
			return lineMatch{kind: document.BlockQuote, text: m[1]}
		},
		prefix: func(document.Block, document.ListItem) string { return "> " },
	}

	BulletList = &Transformer{
		Name:    "bullet-list",
		Type:    Element,
		Trigger: "-",
		Block:   document.BlockBulletList,
		Line:    regexp.MustCompile(`^((?: {4})*)[-*+] (.*)$`),
		match: func(m []string) lineMatch {
			return lineMatch{kind: document.BlockBulletList, indent: indentLevel(m[1]), text: m[2]}
		},
		prefix: func(_ document.Block, it document.ListItem) string {
			return indentPrefix(it.Indent) + "- "
		},
	}

	OrderedList = &Transformer{
		Name:    "ordered-list",
		Type:    Element,
		Trigger: ".",
		Block:   document.BlockOrderedList,
		Line:    regexp.MustCompile(`^((?: {4})*)(0|[1-9][0-9]{0,8})\. (.*)$`),
		match: func(m []string) lineMatch {
			var v int
			fmt.Sscanf(m[2], "%d", &v)
			return lineMatch{kind: document.BlockOrderedList, indent: indentLevel(m[1]), value: v, text: m[3]}
		},
		prefix: func(_ document.Block, it document.ListItem) string {
			return fmt.Sprintf("%s%d. ", indentPrefix(it.Indent), it.Value)
		},
	}

	CodeBlock = &Transformer{
		Name:    "code",
		Type:    Multiline,
		Trigger: "```",
		Block:   document.BlockCode,
		Line:    regexp.MustCompile("^(`{3,})([\\w+#.-]*)$"),
		End:     regexp.MustCompile("^`{3,}$"),
	}

	InlineCode    = textFormat("code", "`", "`", document.Code)
	BoldItalic    = textFormat("bold-italic", "***", "***", document.Bold|document.Italic)
	Bold          = textFormat("bold", "**", "**", document.Bold)
	Highlight     = textFormat("highlight", "==", "==", document.Highlight)
	Italic        = textFormat("italic", "*", "*", document.Italic)
	Strikethrough = textFormat("strikethrough", "~~", "~~", document.Strikethrough)
	Underline     = textFormat("underline", "<u>", "</u>", document.Underline)

	Link = &Transformer{
		Name:     "link",
		Type:     TextMatch,
		Trigger:  ")",
		Inline:   document.InlineLink,
		Pattern:  regexp.MustCompile(`\[([^\[\]]*)\]\(([^()\s]+)\)`),
		Shortcut: regexp.MustCompile(`\[([^\[\]]+)\]\(([^()\s]+)\)$`),
		build: func(m []string) document.Inline {
			return document.Link(m[2], parseSpans(m[1])...)
		},
		export: func(in document.Inline) string {
			return "[" + exportSpans(in.Children, linkCodeSpecials) + "](" + in.URL + ")"
		},
	}
)

func textFormat(name, open, end string, f document.Format) *Transformer {
	var body string
	if f == document.Code {
		body = "([^`]+)"
	} else {
		body = `(\S|\S.*?\S)`
	}
	return &Transformer{
		Name:    name,
		Type:    TextFormat,
		Trigger: open,
		Format:  f,
		Open:    open,
		Close:   end,
		Pattern: regexp.MustCompile(regexp.QuoteMeta(open) + body + regexp.QuoteMeta(end)),
	}
}

// transformers is the registry in priority order. It is filled in init
// because the link rule parses its own text with the format rules.
var transformers []*Transformer

// Rule subsets derived from the registry, kept in registry order.
var (
	elementRules []*Transformer
	formatRules  []*Transformer
	atomicRules  []*Transformer
	matchRules   []*Transformer
)

func init() {
	transformers = []*Transformer{
		Image,
		CheckList,
		Heading,
		Quote,
		BulletList,
		OrderedList,
		CodeBlock,
		InlineCode,
		BoldItalic,
		Bold,
		Highlight,
		Italic,
		Strikethrough,
		Underline,
		Link,
	}
	elementRules = transformersOf(Element)
	matchRules = transformersOf(TextMatch)
	for _, t := range transformers {
		switch {
		case t == InlineCode || t.Type == TextMatch:
			atomicRules = append(atomicRules, t)
		case t.Type == TextFormat:
			formatRules = append(formatRules, t)
		}
	}
}

// exportWrap lists text formats from the innermost marker outwards.
var exportWrap = []*Transformer{BoldItalic, Bold, Italic, Underline, Strikethrough, Highlight}

// Transformers returns the registry in priority order.
func Transformers() []*Transformer {
	out := make([]*Transformer, len(transformers))
	copy(out, transformers)
	return out
}

func transformersOf(typ TransformerType) []*Transformer {
	var out []*Transformer
	for _, t := range transformers {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}

func blockTransformer(kind document.BlockKind) *Transformer {
	for _, t := range transformers {
		if (t.Type == Element || t.Type == Multiline) && t.Block == kind {
			return t
		}
	}
	return nil
}

func inlineTransformer(kind document.InlineKind) *Transformer {
	for _, t := range transformers {
		if t.Type == TextMatch && t.Inline == kind {
			return t
		}
	}
	return nil
}
