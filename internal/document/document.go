// Package document defines the rich-text tree exchanged with the editor.
//
// The tree is a closed variant: every block has a BlockKind and every span
// an InlineKind. Markdown conversion lives in package markdown.
package document

import (
	"fmt"
	"strings"
)

// BlockKind identifies a top-level block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockQuote
	BlockBulletList
	BlockOrderedList
	BlockCheckList
	BlockCode
)

var blockNames = [...]string{
	BlockParagraph:   "paragraph",
	BlockHeading:     "heading",
	BlockQuote:       "quote",
	BlockBulletList:  "bullet-list",
	BlockOrderedList: "ordered-list",
	BlockCheckList:   "check-list",
	BlockCode:        "code",
}

func (k BlockKind) String() string {
	if int(k) < 0 || int(k) >= len(blockNames) {
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
	return blockNames[k]
}

// IsList reports whether blocks of this kind carry Items.
func (k BlockKind) IsList() bool {
	return k == BlockBulletList || k == BlockOrderedList || k == BlockCheckList
}

func (k BlockKind) MarshalText() ([]byte, error) {
	if int(k) < 0 || int(k) >= len(blockNames) {
		return nil, fmt.Errorf("document: unknown block kind %d", int(k))
	}
	return []byte(blockNames[k]), nil
}

func (k *BlockKind) UnmarshalText(b []byte) error {
	for i, name := range blockNames {
		if name == string(b) {
			*k = BlockKind(i)
			return nil
		}
	}
	return fmt.Errorf("document: unknown block kind %q", b)
}

// InlineKind identifies a span inside a block.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineLink
	InlineImage
	InlineLineBreak
)

var inlineNames = [...]string{
	InlineText:      "text",
	InlineLink:      "link",
	InlineImage:     "image",
	InlineLineBreak: "linebreak",
}

func (k InlineKind) String() string {
	if int(k) < 0 || int(k) >= len(inlineNames) {
		return fmt.Sprintf("InlineKind(%d)", int(k))
	}
	return inlineNames[k]
}

func (k InlineKind) MarshalText() ([]byte, error) {
	if int(k) < 0 || int(k) >= len(inlineNames) {
		return nil, fmt.Errorf("document: unknown inline kind %d", int(k))
	}
	return []byte(inlineNames[k]), nil
}

func (k *InlineKind) UnmarshalText(b []byte) error {
	for i, name := range inlineNames {
		if name == string(b) {
			*k = InlineKind(i)
			return nil
		}
	}
	return fmt.Errorf("document: unknown inline kind %q", b)
}

// Format is a bit set of text styles.
type Format uint8

const (
	Bold Format = 1 << iota
	Italic
	Underline
	Strikethrough
	Code
	Highlight
)

// Has reports whether all bits of f2 are set in f.
func (f Format) Has(f2 Format) bool { return f&f2 == f2 }

// Document is an ordered list of blocks.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// Block is one top-level element. Which fields are meaningful depends on Kind:
// Inlines for paragraph, heading and quote; Items for lists; Language and
// Code for code blocks; Level for headings.
type Block struct {
	Kind     BlockKind  `json:"type"`
	Level    int        `json:"level,omitempty"`
	Language string     `json:"language,omitempty"`
	Code     string     `json:"code,omitempty"`
	Inlines  []Inline   `json:"children,omitempty"`
	Items    []ListItem `json:"items,omitempty"`
}

// ListItem is an entry of a bullet, ordered or check list.
type ListItem struct {
	Indent  int      `json:"indent,omitempty"`
	Value   int      `json:"value,omitempty"`
	Checked bool     `json:"checked,omitempty"`
	Inlines []Inline `json:"children,omitempty"`
}

// Inline is a span of a block. Text and Format apply to text spans; URL and
// Children to links; Src and Alt to images.
type Inline struct {
	Kind     InlineKind `json:"type"`
	Text     string     `json:"text,omitempty"`
	Format   Format     `json:"format,omitempty"`
	URL      string     `json:"url,omitempty"`
	Children []Inline   `json:"children,omitempty"`
	Src      string     `json:"src,omitempty"`
	Alt      string     `json:"altText,omitempty"`
}

// New returns a document holding blocks.
func New(blocks ...Block) *Document {
	return &Document{Blocks: blocks}
}

func Paragraph(inlines ...Inline) Block {
	return Block{Kind: BlockParagraph, Inlines: inlines}
}

// Heading returns a heading block. Levels outside 1..3 are clamped.
func Heading(level int, inlines ...Inline) Block {
	level = min(max(level, 1), 3)
	return Block{Kind: BlockHeading, Level: level, Inlines: inlines}
}

func Quote(inlines ...Inline) Block {
	return Block{Kind: BlockQuote, Inlines: inlines}
}

func BulletList(items ...ListItem) Block {
	return Block{Kind: BlockBulletList, Items: items}
}

// OrderedList numbers items from 1 at each indent level.
func OrderedList(items ...ListItem) Block {
	counters := map[int]int{}
	for i := range items {
		counters[items[i].Indent]++
		items[i].Value = counters[items[i].Indent]
	}
	return Block{Kind: BlockOrderedList, Items: items}
}

func CheckList(items ...ListItem) Block {
	return Block{Kind: BlockCheckList, Items: items}
}

func CodeBlock(language, code string) Block {
	return Block{Kind: BlockCode, Language: language, Code: code}
}

// Item returns an unindented list item.
func Item(inlines ...Inline) ListItem {
	return ListItem{Inlines: inlines}
}

// Task returns a check list item.
func Task(checked bool, inlines ...Inline) ListItem {
	return ListItem{Checked: checked, Inlines: inlines}
}

func Text(s string) Inline {
	return Inline{Kind: InlineText, Text: s}
}

func Styled(s string, f Format) Inline {
	return Inline{Kind: InlineText, Text: s, Format: f}
}

func Link(url string, children ...Inline) Inline {
	return Inline{Kind: InlineLink, URL: url, Children: children}
}

func Image(src, alt string) Inline {
	return Inline{Kind: InlineImage, Src: src, Alt: alt}
}

func LineBreak() Inline {
	return Inline{Kind: InlineLineBreak}
}

// TextContent flattens the document to plain text. Blocks are separated by
// a blank line, list items by a newline. Images contribute nothing.
func (d *Document) TextContent() string {
	if d == nil {
		return ""
	}
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		parts = append(parts, b.TextContent())
	}
	return strings.Join(parts, "\n\n")
}

// TextContent flattens a single block.
func (b Block) TextContent() string {
	switch {
	case b.Kind == BlockCode:
		return b.Code
	case b.Kind.IsList():
		lines := make([]string, 0, len(b.Items))
		for _, it := range b.Items {
			lines = append(lines, SpanText(it.Inlines))
		}
		return strings.Join(lines, "\n")
	default:
		return SpanText(b.Inlines)
	}
}

// SpanText concatenates the text of a span list.
func SpanText(inlines []Inline) string {
	var sb strings.Builder
	for _, in := range inlines {
		switch in.Kind {
		case InlineText:
			sb.WriteString(in.Text)
		case InlineLink:
			sb.WriteString(SpanText(in.Children))
		case InlineLineBreak:
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Images returns every image node in document order.
func (d *Document) Images() []Inline {
	if d == nil {
		return nil
	}
	var out []Inline
	var walk func([]Inline)
	walk = func(ins []Inline) {
		for _, in := range ins {
			switch in.Kind {
			case InlineImage:
				out = append(out, in)
			case InlineLink:
				walk(in.Children)
			}
		}
	}
	for _, b := range d.Blocks {
		walk(b.Inlines)
		for _, it := range b.Items {
			walk(it.Inlines)
		}
	}
	return out
}
