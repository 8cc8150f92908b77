package vault

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/starford/anota/internal/apperr"
)

// imageTypes maps the accepted image MIME types to the extension an asset
// of that type is stored with.
var imageTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// ImageExt returns the asset extension for an image MIME type, or "".
func ImageExt(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	return imageTypes[strings.TrimSpace(strings.ToLower(mime))]
}

// CheckImage verifies that name has an image extension and that data
// looks like that kind of image.
func CheckImage(data []byte, name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	known := false
	for _, e := range imageTypes {
		known = known || e == ext
	}
	if !known {
		return fmt.Errorf("%w: extension %q is not an image (png, jpg, gif, webp, svg)", apperr.ErrUnsupportedMedia, ext)
	}

	// SVG is text and sniffs as text/xml or text/plain.
	if ext == ".svg" {
		if !bytes.Contains(data[:min(len(data), 1024)], []byte("<svg")) {
			return fmt.Errorf("%w: content is not svg", apperr.ErrUnsupportedMedia)
		}
		return nil
	}

	detected := http.DetectContentType(data)
	if got := ImageExt(detected); got != ext {
		return fmt.Errorf("%w: content does not match %s (detected %s)", apperr.ErrUnsupportedMedia, ext, detected)
	}
	return nil
}
