package markdown

import (
	"fmt"
	"log/slog"

	"github.com/starford/anota/internal/document"
)

// Converter is the boundary used by callers that must never fail because of
// a conversion: a panic inside conversion is logged and replaced by an
// empty or unchanged result.
type Converter struct {
	logger *slog.Logger
}

// NewConverter returns a Converter that reports failures to logger.
func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{logger: logger}
}

// ToMarkdown renders doc, or returns "" if rendering fails.
func (c *Converter) ToMarkdown(doc *document.Document) (out string) {
	defer c.guard("to markdown", func() { out = "" })
	return ToMarkdown(doc)
}

// FromMarkdown parses md, or returns an empty document if parsing fails.
func (c *Converter) FromMarkdown(md string) (doc *document.Document) {
	defer c.guard("from markdown", func() { doc = &document.Document{} })
	return FromMarkdown(md)
}

// PlainText flattens md, or returns md unchanged if parsing fails.
func (c *Converter) PlainText(md string) (out string) {
	defer c.guard("plain text", func() { out = md })
	return PlainText(md)
}

func (c *Converter) guard(op string, fallback func()) {
	if r := recover(); r != nil {
		c.logger.Error("markdown conversion failed",
			slog.String("op", op),
			slog.String("error", fmt.Sprint(r)),
		)
		fallback()
	}
}
